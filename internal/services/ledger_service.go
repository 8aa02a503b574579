package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"poupazap/internal/core"
)

type (
	TransactionStore interface {
		InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	// Publisher announces recorded transactions to downstream consumers.
	Publisher interface {
		PublishTransactionRecorded(ctx context.Context, t core.Transaction) error
	}
)

// LedgerService writes transactions locally and then announces them.
type LedgerService struct {
	store     TransactionStore
	publisher Publisher
}

// NewLedgerService wires the service. publisher may be nil, in which case
// the periodic export sweep is the only path to the spreadsheet.
func NewLedgerService(store TransactionStore, publisher Publisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

// RecordTransaction saves t and publishes it. A publish failure is logged
// and does not fail the call: the row stays pending and the sweep picks it
// up.
func (s *LedgerService) RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	saved, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping transaction message", "id", saved.ID)
		return saved, nil
	}
	if err := s.publisher.PublishTransactionRecorded(ctx, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction message",
			"id", saved.ID, "error", err)
	}
	return saved, nil
}

// Close releases the store and publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
