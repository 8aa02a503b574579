package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"poupazap/internal/core"
)

func (r *SQLiteRepository) ListCards(ctx context.Context, userID string) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, nickname, limit_cents, closing_day, due_day
		FROM cards WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []core.Card
	for rows.Next() {
		var c core.Card
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Nickname, &c.Limit.Cents, &c.ClosingDay, &c.DueDay); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddCard registers a card. The nickname is unique per user once folded,
// so "Nubank" and "nubank" collide.
func (r *SQLiteRepository) AddCard(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cards (user_id, name, nickname, nickname_key, limit_cents, closing_day, due_day)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, nickname_key) DO NOTHING`,
		c.UserID, c.Name, c.Nickname, nicknameKey(c.Nickname), c.Limit.Cents, c.ClosingDay, c.DueDay)
	if err != nil {
		return core.Card{}, fmt.Errorf("add card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Card{}, core.ErrDuplicateCard
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Card{}, fmt.Errorf("add card: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) RemoveCard(ctx context.Context, userID, nickname string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cards WHERE user_id = ? AND nickname_key = ?`, userID, nicknameKey(nickname))
	if err != nil {
		return fmt.Errorf("remove card %q: %w", nickname, err)
	}
	return requireOneRow(res, fmt.Sprintf("remove card %q", nickname))
}

func nicknameKey(nickname string) string {
	return core.Normalize(strings.TrimSpace(nickname))
}

func (r *SQLiteRepository) AddGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (user_id, name, target_cents, current_cents, months, monthly_target_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.Target.Cents, g.Current.Cents, g.Months, g.MonthlyTarget.Cents,
		g.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return core.Goal{}, fmt.Errorf("add goal: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return core.Goal{}, fmt.Errorf("add goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, target_cents, current_cents, months, monthly_target_cents, created_at
		FROM goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g       core.Goal
			created string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Target.Cents, &g.Current.Cents, &g.Months,
			&g.MonthlyTarget.Cents, &created); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.CreatedAt, _ = time.Parse(timestampLayout, created)
		out = append(out, g)
	}
	return out, rows.Err()
}

const scheduledColumns = `id, user_id, name, amount_cents, category, type, recurrence_type, recurrence_day,
	total_installments, installments_paid, next_due_date, reminder_enabled, reminder_days_before, active, card_id`

func scanScheduled(s scanner) (core.ScheduledExpense, error) {
	var (
		e             core.ScheduledExpense
		typ, nextDate string
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Name, &e.Amount.Cents, &e.Category, &typ, &e.RecurrenceType,
		&e.RecurrenceDay, &e.TotalInstallments, &e.InstallmentsPaid, &nextDate, &e.ReminderEnabled,
		&e.ReminderDaysBefore, &e.Active, &e.CardID); err != nil {
		return core.ScheduledExpense{}, err
	}
	e.Type = core.ScheduleType(typ)
	d, err := time.Parse(dateLayout, nextDate)
	if err != nil {
		return core.ScheduledExpense{}, fmt.Errorf("parse next due date %q: %w", nextDate, err)
	}
	e.NextDueDate = core.Date{Time: d}
	return e, nil
}

func (r *SQLiteRepository) AddScheduledExpense(ctx context.Context, e core.ScheduledExpense) (core.ScheduledExpense, error) {
	if err := e.Validate(); err != nil {
		return core.ScheduledExpense{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_expenses (user_id, name, amount_cents, category, type, recurrence_type,
		    recurrence_day, total_installments, installments_paid, next_due_date, reminder_enabled,
		    reminder_days_before, active, card_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Name, e.Amount.Cents, e.Category, string(e.Type), e.RecurrenceType, e.RecurrenceDay,
		e.TotalInstallments, e.InstallmentsPaid, e.NextDueDate.Format(dateLayout), e.ReminderEnabled,
		e.ReminderDaysBefore, e.Active, e.CardID)
	if err != nil {
		return core.ScheduledExpense{}, fmt.Errorf("add scheduled expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.ScheduledExpense{}, fmt.Errorf("add scheduled expense: %w", err)
	}
	return e, nil
}

// ListScheduledExpenses returns the user's active entries by next due date.
func (r *SQLiteRepository) ListScheduledExpenses(ctx context.Context, userID string) ([]core.ScheduledExpense, error) {
	return r.queryScheduled(ctx, `
		SELECT `+scheduledColumns+` FROM scheduled_expenses
		WHERE user_id = ? AND active = 1
		ORDER BY next_due_date, id`, userID)
}

// ActiveScheduledExpenses returns every active entry across users.
func (r *SQLiteRepository) ActiveScheduledExpenses(ctx context.Context) ([]core.ScheduledExpense, error) {
	return r.queryScheduled(ctx, `
		SELECT `+scheduledColumns+` FROM scheduled_expenses
		WHERE active = 1
		ORDER BY next_due_date, id`)
}

func (r *SQLiteRepository) queryScheduled(ctx context.Context, query string, args ...any) ([]core.ScheduledExpense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduled expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ScheduledExpense
	for rows.Next() {
		e, err := scanScheduled(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetScheduledExpense(ctx context.Context, id int64) (core.ScheduledExpense, error) {
	e, err := scanScheduled(r.db.QueryRowContext(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.ScheduledExpense{}, fmt.Errorf("get scheduled expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.ScheduledExpense{}, fmt.Errorf("get scheduled expense %d: %w", id, err)
	}
	return e, nil
}

// UpdateScheduledExpense persists the progress fields the daily job
// changes.
func (r *SQLiteRepository) UpdateScheduledExpense(ctx context.Context, e core.ScheduledExpense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_expenses
		SET installments_paid = ?, next_due_date = ?, active = ?
		WHERE id = ?`,
		e.InstallmentsPaid, e.NextDueDate.Format(dateLayout), e.Active, e.ID)
	if err != nil {
		return fmt.Errorf("update scheduled expense %d: %w", e.ID, err)
	}
	return requireOneRow(res, fmt.Sprintf("update scheduled expense %d", e.ID))
}
