package worker

import (
	"context"
	"fmt"
	"time"

	"poupazap/internal/amqp"
	"poupazap/internal/core"
	"poupazap/internal/log"
	"poupazap/internal/metrics"
	"poupazap/internal/sheets"
)

// ExportStore is the slice of the ledger the worker needs to track which
// rows reached the spreadsheet.
type ExportStore interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	PendingExports(ctx context.Context, limit int) ([]core.Transaction, error)
	ExportStatus(ctx context.Context, id int64) (core.SyncStatus, error)
	MarkExported(ctx context.Context, id int64) error
	MarkExportFailed(ctx context.Context, id int64, reason string) error
}

// SyncWorker copies recorded transactions to the spreadsheet, either on
// a broker event or by sweeping whatever is still pending.
type SyncWorker struct {
	store   ExportStore
	sheets  sheets.TransactionWriter
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewSyncWorker(store ExportStore, writer sheets.TransactionWriter, m *metrics.Metrics, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		store:   store,
		sheets:  writer,
		metrics: m,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes a single transaction event from AMQP. A row that
// was already exported is acknowledged without writing it twice.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionRecorded) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldTransactionID, msg.TransactionID,
		log.FieldMessageID, msg.MessageID)

	status, err := w.store.ExportStatus(ctx, msg.TransactionID)
	if err != nil {
		return fmt.Errorf("get export status: %w", err)
	}
	if status == core.SyncSynced {
		w.metrics.Export("skipped")
		w.logger.DebugContext(ctx, "Transaction already exported", log.FieldTransactionID, msg.TransactionID)
		return nil
	}

	t, err := w.store.GetTransaction(ctx, msg.TransactionID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if err := w.export(ctx, t); err != nil {
		return fmt.Errorf("sync transaction to sheets: %w", err)
	}
	return nil
}

// ProcessPending exports up to limit pending transactions and reports how
// many made it. It is the backup path for lost broker messages.
func (w *SyncWorker) ProcessPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.PendingExports(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	synced := 0
	for _, t := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.export(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync transaction",
				log.FieldTransactionID, t.ID, log.FieldError, err)
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Pending export sweep completed",
		"total", len(pending),
		"synced", synced,
		"errors", len(pending)-synced)
	return synced, nil
}

func (w *SyncWorker) export(ctx context.Context, t core.Transaction) error {
	start := time.Now()
	ref, err := w.sheets.AppendTransaction(ctx, t)
	if err != nil {
		w.metrics.Export("failed")
		if markErr := w.store.MarkExportFailed(ctx, t.ID, err.Error()); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldTransactionID, t.ID, log.FieldError, markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	// the row is in the sheet even if this bookkeeping fails
	if err := w.store.MarkExported(ctx, t.ID); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark as synced", log.FieldTransactionID, t.ID, log.FieldError, err)
	}
	w.metrics.Export("synced")

	w.logger.InfoContext(ctx, "Successfully synced transaction",
		log.FieldTransactionID, t.ID,
		log.FieldUserID, t.UserID,
		log.FieldAmountCents, t.Amount.Cents,
		"sheets_ref", ref,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
