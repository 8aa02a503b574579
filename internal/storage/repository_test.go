package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poupazap/internal/conversation"
	"poupazap/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func expense(user string, cents int64, cat string, date core.Date) core.Transaction {
	return core.Transaction{
		UserID: user, Kind: core.Expense, Amount: core.Money{Cents: cents},
		Category: cat, Description: "teste", Date: date,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	require.NoError(t, RollbackMigrations(path))
	v, _, err = SchemaVersion(path)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestConversationPersistence(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	c, created, err := repo.LoadConversation(ctx, "5511999", "Ana")
	require.NoError(t, err)
	assert.True(t, created)

	c.State = conversation.StateGoalAskMonths
	c.Draft = conversation.GoalDraft{Name: "Viagem", Value: core.Money{Cents: 500000}}
	c.LastProcessedMessageID = "wamid.1"
	require.NoError(t, repo.SaveConversation(ctx, c))

	got, created, err := repo.LoadConversation(ctx, "5511999", "Ana")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conversation.StateGoalAskMonths, got.State)
	assert.Equal(t, conversation.GoalDraft{Name: "Viagem", Value: core.Money{Cents: 500000}}, got.Draft)
	assert.Equal(t, "wamid.1", got.LastProcessedMessageID)
	assert.Equal(t, core.DefaultCategories(), got.Categories)
	assert.Equal(t, "Ana", got.DisplayName)

	got.State = conversation.StateMenu
	got.Draft = nil
	require.NoError(t, repo.SaveConversation(ctx, got))

	again, _, err := repo.LoadConversation(ctx, "5511999", "")
	require.NoError(t, err)
	assert.Nil(t, again.Draft)
	assert.Equal(t, "wamid.1", again.LastProcessedMessageID, "the guard survives a draft reset")
	assert.Equal(t, "Ana", again.DisplayName, "an empty hint keeps the stored name")

	renamed, _, err := repo.LoadConversation(ctx, "5511999", "Ana Maria")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", renamed.DisplayName)
	require.NoError(t, repo.SaveConversation(ctx, renamed))

	persisted, _, err := repo.LoadConversation(ctx, "5511999", "")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", persisted.DisplayName)
}

func TestTransactionsAndOverview(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	march := core.NewDate(2025, 3, 31)
	tx, err := repo.InsertTransaction(ctx, expense("u1", 5090, "Alimentação", march))
	require.NoError(t, err)
	require.NotZero(t, tx.ID)

	voice := expense("u1", 3500, "Transporte", core.NewDate(2025, 3, 1))
	voice.IsVoice = true
	voice.CardID = 4
	_, err = repo.InsertTransaction(ctx, voice)
	require.NoError(t, err)
	_, err = repo.InsertTransaction(ctx, expense("u1", 1000, "Alimentação", core.NewDate(2025, 3, 2)))
	require.NoError(t, err)
	_, err = repo.InsertTransaction(ctx, expense("u1", 999, "Lazer", core.NewDate(2025, 4, 1)))
	require.NoError(t, err)
	_, err = repo.InsertTransaction(ctx, core.Transaction{
		UserID: "u1", Kind: core.Income, Amount: core.Money{Cents: 250000},
		Category: core.IncomeCategory, Description: "Salário", Date: march,
	})
	require.NoError(t, err)

	got, err := repo.GetTransaction(ctx, 2)
	require.NoError(t, err)
	assert.True(t, got.IsVoice)
	assert.Equal(t, int64(4), got.CardID)
	assert.Equal(t, core.NewDate(2025, 3, 1), got.Date)

	o, err := repo.MonthOverview(ctx, "u1", 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), o.Income.Cents)
	assert.Equal(t, int64(9590), o.Expenses.Cents)
	assert.Equal(t, []core.CategoryAmount{
		{Name: "Alimentação", Amount: core.Money{Cents: 6090}},
		{Name: "Transporte", Amount: core.Money{Cents: 3500}},
	}, o.ByCategory)

	_, err = repo.GetTransaction(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExportTracking(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for i := 0; i < 3; i++ {
		_, err := repo.InsertTransaction(ctx, expense("u1", 100, "Outros", core.NewDate(2025, 1, 1)))
		require.NoError(t, err)
	}

	require.NoError(t, repo.MarkExported(ctx, 1))
	require.NoError(t, repo.MarkExportFailed(ctx, 2, "quota exceeded"))

	pending, err := repo.PendingExports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(2), pending[0].ID)
	assert.Equal(t, int64(3), pending[1].ID)

	status, err := repo.ExportStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.SyncSynced, status)

	assert.ErrorIs(t, repo.MarkExported(ctx, 42), core.ErrNotFound)
}

func TestCardsGoalsAndSchedules(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.AddCard(ctx, core.Card{UserID: "u1", Name: "Nubank", Nickname: "Roxinho", Limit: core.Money{Cents: 500000}})
	require.NoError(t, err)
	_, err = repo.AddCard(ctx, core.Card{UserID: "u1", Name: "Outro", Nickname: "roxinho"})
	assert.ErrorIs(t, err, core.ErrDuplicateCard)

	cards, err := repo.ListCards(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Roxinho", cards[0].Nickname)
	assert.Equal(t, int64(500000), cards[0].Limit.Cents)

	require.NoError(t, repo.RemoveCard(ctx, "u1", "ROXINHO"))
	assert.ErrorIs(t, repo.RemoveCard(ctx, "u1", "roxinho"), core.ErrNotFound)

	g, err := core.NewGoal("u1", "Carro", core.Money{Cents: 1000000}, 3, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = repo.AddGoal(ctx, g)
	require.NoError(t, err)
	goals, err := repo.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, int64(333333), goals[0].MonthlyTarget.Cents)
	assert.True(t, goals[0].CreatedAt.Equal(g.CreatedAt))

	rent, err := repo.AddScheduledExpense(ctx, core.ScheduledExpense{
		UserID: "u1", Name: "Aluguel", Amount: core.Money{Cents: 150000}, Category: "Moradia",
		Type: core.Recurring, RecurrenceType: "mensal", RecurrenceDay: 5,
		NextDueDate: core.NewDate(2025, 4, 5), ReminderEnabled: true, ReminderDaysBefore: 2, Active: true,
	})
	require.NoError(t, err)
	_, err = repo.AddScheduledExpense(ctx, core.ScheduledExpense{
		UserID: "u1", Name: "Celular", Amount: core.Money{Cents: 20000}, Category: "Compras",
		Type: core.Installment, TotalInstallments: 10, InstallmentsPaid: 3,
		NextDueDate: core.NewDate(2025, 3, 20), Active: true,
	})
	require.NoError(t, err)

	list, err := repo.ListScheduledExpenses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Celular", list[0].Name)
	assert.True(t, list[1].ReminderEnabled)

	rent.NextDueDate = core.NewDate(2025, 5, 5)
	rent.Active = false
	require.NoError(t, repo.UpdateScheduledExpense(ctx, rent))
	stored, err := repo.GetScheduledExpense(ctx, rent.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.Equal(t, core.NewDate(2025, 5, 5), stored.NextDueDate)

	all, err := repo.ActiveScheduledExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
