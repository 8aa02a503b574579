package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"poupazap/internal/core"
	"poupazap/internal/metrics"
)

const scheduledPaymentPrefix = "Pagamento (Agendado): "

type (
	ScheduleStore interface {
		ActiveScheduledExpenses(ctx context.Context) ([]core.ScheduledExpense, error)
		UpdateScheduledExpense(ctx context.Context, e core.ScheduledExpense) error
	}

	Recorder interface {
		RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	// Notifier delivers a text to a user, e.g. through the chat transport.
	Notifier interface {
		SendText(ctx context.Context, userID, text string) error
	}
)

// ScheduleRun summarizes one pass of the daily job.
type ScheduleRun struct {
	Checked  int
	Reminded int
	Paid     int
	Failed   int
}

// ScheduledProcessor pays scheduled expenses on their due date and sends
// reminders ahead of it.
type ScheduledProcessor struct {
	store    ScheduleStore
	ledger   Recorder
	notifier Notifier
	metrics  *metrics.Metrics
}

// NewScheduledProcessor wires the processor. notifier may be nil, which
// disables reminders.
func NewScheduledProcessor(store ScheduleStore, ledger Recorder, notifier Notifier, m *metrics.Metrics) *ScheduledProcessor {
	return &ScheduledProcessor{store: store, ledger: ledger, notifier: notifier, metrics: m}
}

// ProcessDue runs the daily pass for the calendar day of now. Failures on
// one entry are logged and do not stop the others.
func (p *ScheduledProcessor) ProcessDue(ctx context.Context, now time.Time) (ScheduleRun, error) {
	var run ScheduleRun
	if p.store == nil || p.ledger == nil {
		return run, fmt.Errorf("processor not properly initialized")
	}

	entries, err := p.store.ActiveScheduledExpenses(ctx)
	if err != nil {
		return run, fmt.Errorf("get active scheduled expenses: %w", err)
	}

	y, m, d := now.Date()
	today := core.NewDate(y, int(m), d)

	slog.InfoContext(ctx, "Processing scheduled expenses",
		"total_active", len(entries),
		"processing_date", today.Format("2006-01-02"))

	for _, e := range entries {
		run.Checked++
		if ReminderDue(e, today) && p.remind(ctx, e) {
			run.Reminded++
		}
		if e.NextDueDate.After(today.Time) {
			continue
		}
		if err := p.pay(ctx, e, today); err != nil {
			run.Failed++
			p.metrics.Scheduled("failed")
			slog.ErrorContext(ctx, "Failed to process scheduled expense",
				"schedule_id", e.ID,
				"user_id", e.UserID,
				"error", err)
			continue
		}
		run.Paid++
		p.metrics.Scheduled("paid")
	}

	slog.InfoContext(ctx, "Scheduled expense processing complete",
		"checked", run.Checked,
		"paid", run.Paid,
		"reminded", run.Reminded,
		"failed", run.Failed)
	return run, nil
}

// ReminderDue reports whether today is exactly ReminderDaysBefore days
// before the next due date.
func ReminderDue(e core.ScheduledExpense, today core.Date) bool {
	if !e.ReminderEnabled {
		return false
	}
	return e.NextDueDate.AddDate(0, 0, -e.ReminderDaysBefore).Equal(today.Time)
}

func ReminderText(e core.ScheduledExpense) string {
	return fmt.Sprintf("🔔 *Lembrete:* Sua despesa \"%s\" de %s vence em %d dia(s)!", e.Name, e.Amount, e.ReminderDaysBefore)
}

func (p *ScheduledProcessor) remind(ctx context.Context, e core.ScheduledExpense) bool {
	if p.notifier == nil {
		return false
	}
	if err := p.notifier.SendText(ctx, e.UserID, ReminderText(e)); err != nil {
		slog.ErrorContext(ctx, "Failed to send reminder",
			"schedule_id", e.ID, "user_id", e.UserID, "error", err)
		p.metrics.Scheduled("reminder_failed")
		return false
	}
	p.metrics.Scheduled("reminded")
	return true
}

func (p *ScheduledProcessor) pay(ctx context.Context, e core.ScheduledExpense, today core.Date) error {
	advancer, err := GetAdvancer(e.Type)
	if err != nil {
		return err
	}

	category := e.Category
	if category == "" {
		category = core.FallbackCategory
	}
	tx, err := p.ledger.RecordTransaction(ctx, core.Transaction{
		UserID:      e.UserID,
		Kind:        core.Expense,
		Amount:      e.Amount,
		Category:    category,
		Description: scheduledPaymentPrefix + e.Name,
		CardID:      e.CardID,
		Date:        today,
	})
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}

	next := advancer.Advance(e)
	if err := p.store.UpdateScheduledExpense(ctx, next); err != nil {
		// payment already recorded; the entry stays due until fixed
		return fmt.Errorf("advance scheduled expense: %w", err)
	}

	slog.InfoContext(ctx, "Paid scheduled expense",
		"schedule_id", e.ID,
		"transaction_id", tx.ID,
		"amount_cents", e.Amount.Cents,
		"next_due", next.NextDueDate.Format("2006-01-02"),
		"active", next.Active)
	return nil
}
