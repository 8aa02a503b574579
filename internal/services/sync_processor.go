package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sweeper exports up to limit transactions that are still pending.
type Sweeper interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to look for pending rows (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of rows exported per poll (default: 10)
	BatchSize int

	// StartupBatchSize is the larger batch exported once on Start
	// (default: 5x BatchSize)
	StartupBatchSize int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:     30 * time.Second,
		BatchSize:        10,
		StartupBatchSize: 50,
	}
}

// SyncProcessor periodically re-exports rows whose AMQP message was lost
// or whose export failed.
type SyncProcessor struct {
	sweeper Sweeper
	config  SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(sweeper Sweeper, config SyncProcessorConfig) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.StartupBatchSize <= 0 {
		config.StartupBatchSize = config.BatchSize * 5
	}
	return &SyncProcessor{sweeper: sweeper, config: config}
}

// Start begins the polling loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	if p.sweeper == nil {
		p.mu.Unlock()
		return fmt.Errorf("sync processor has no sweeper")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.sweep(ctx, p.config.StartupBatchSize)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx, p.config.BatchSize)
		}
	}
}

func (p *SyncProcessor) sweep(ctx context.Context, limit int) {
	n, err := p.sweeper.ProcessPending(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to process pending exports", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Exported pending transactions", "count", n)
	}
}
