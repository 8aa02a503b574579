package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"poupazap/internal/conversation"
	"poupazap/internal/core"

	_ "modernc.org/sqlite"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time; per-user loops run concurrently
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadConversation implements conversation.Store. A user seen for the
// first time gets a default record, which is only written on save.
func (r *SQLiteRepository) LoadConversation(ctx context.Context, userID, displayName string) (*conversation.Conversation, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT display_name, state, draft, monthly_budget_cents, account_status,
		       categories, last_processed_message_id, created_at, updated_at
		FROM conversations WHERE user_id = ?`, userID)

	var (
		c                    = conversation.Conversation{UserID: userID}
		state, cats          string
		draft                sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&c.DisplayName, &state, &draft, &c.MonthlyBudget.Cents, &c.AccountStatus,
		&cats, &c.LastProcessedMessageID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return conversation.New(userID, displayName, r.now()), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load conversation %s: %w", userID, err)
	}

	c.State = conversation.State(state)
	if c.Draft, err = conversation.UnmarshalDraft([]byte(draft.String)); err != nil {
		return nil, false, fmt.Errorf("load conversation %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(cats), &c.Categories); err != nil {
		return nil, false, fmt.Errorf("decode categories for %s: %w", userID, err)
	}
	c.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	c.UpdatedAt, _ = time.Parse(timestampLayout, updatedAt)
	c.Rename(displayName)
	return &c, false, nil
}

// SaveConversation implements conversation.Store as an upsert.
func (r *SQLiteRepository) SaveConversation(ctx context.Context, c *conversation.Conversation) error {
	draft, err := conversation.MarshalDraft(c.Draft)
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", c.UserID, err)
	}
	cats, err := json.Marshal(c.Categories)
	if err != nil {
		return fmt.Errorf("encode categories for %s: %w", c.UserID, err)
	}
	var draftCol any
	if draft != nil {
		draftCol = string(draft)
	}
	created, updated := c.CreatedAt, c.UpdatedAt
	if created.IsZero() {
		created = r.now()
	}
	if updated.IsZero() {
		updated = created
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversations (user_id, display_name, state, draft, monthly_budget_cents,
		    account_status, categories, last_processed_message_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		    display_name = excluded.display_name,
		    state = excluded.state,
		    draft = excluded.draft,
		    monthly_budget_cents = excluded.monthly_budget_cents,
		    account_status = excluded.account_status,
		    categories = excluded.categories,
		    last_processed_message_id = excluded.last_processed_message_id,
		    updated_at = excluded.updated_at`,
		c.UserID, c.DisplayName, string(c.State), draftCol, c.MonthlyBudget.Cents,
		c.AccountStatus, string(cats), c.LastProcessedMessageID,
		created.UTC().Format(timestampLayout), updated.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", c.UserID, err)
	}
	return nil
}

// InsertTransaction stores t as pending export and returns it with its id.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, kind, amount_cents, category, description, card_id, is_voice, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Kind), t.Amount.Cents, t.Category, t.Description, t.CardID, t.IsVoice,
		t.Date.Format(dateLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents)
	return t, nil
}

const transactionColumns = `id, user_id, kind, amount_cents, category, description, card_id, is_voice, date`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		kind, date string
	)
	if err := s.Scan(&t.ID, &t.UserID, &kind, &t.Amount.Cents, &t.Category, &t.Description,
		&t.CardID, &t.IsVoice, &date); err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.TransactionKind(kind)
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	t.Date = core.Date{Time: d}
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// PendingExports returns transactions not yet exported, oldest first,
// including ones whose last export failed.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE sync_status != 'synced'
		ORDER BY id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, core.SyncSynced, "")
}

func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id int64, reason string) error {
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id, "reason", reason)
	return r.setSyncStatus(ctx, id, core.SyncError, reason)
}

func (r *SQLiteRepository) ExportStatus(ctx context.Context, id int64) (core.SyncStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT sync_status FROM transactions WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get export status %d: %w", id, err)
	}
	return core.SyncStatus(status), nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status core.SyncStatus, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, sync_error = ? WHERE id = ?`, string(status), reason, id)
	if err != nil {
		return fmt.Errorf("mark transaction %d %s: %w", id, status, err)
	}
	return requireOneRow(res, fmt.Sprintf("mark transaction %d", id))
}

// MonthOverview sums the user's ledger for one calendar month.
func (r *SQLiteRepository) MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, core.ErrInvalidMonth
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	overview := core.MonthOverview{Year: year, Month: month}

	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, category, SUM(amount_cents)
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?
		GROUP BY kind, category
		ORDER BY MIN(id)`,
		userID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return overview, fmt.Errorf("get month overview: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind, category string
			total          int64
		)
		if err := rows.Scan(&kind, &category, &total); err != nil {
			return overview, fmt.Errorf("scan month overview: %w", err)
		}
		amount := core.Money{Cents: total}
		switch core.TransactionKind(kind) {
		case core.Income:
			overview.Income = overview.Income.Add(amount)
		case core.Expense:
			overview.Expenses = overview.Expenses.Add(amount)
			overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{Name: category, Amount: amount})
		}
	}
	return overview, rows.Err()
}

func requireOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}
