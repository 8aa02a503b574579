package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poupazap/internal/conversation"
	"poupazap/internal/core"
)

func TestConversationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	c, created, err := s.LoadConversation(ctx, "u1", "Ana")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, conversation.StateMenu, c.State)

	c.State = conversation.StateExpenseAskCategory
	c.Draft = conversation.ExpenseDraft{Amount: core.Money{Cents: 5000}}
	c.LastProcessedMessageID = "m1"
	require.NoError(t, s.SaveConversation(ctx, c))

	// mutating the caller's copy must not change what is stored
	c.State = conversation.StateMenu

	got, created, err := s.LoadConversation(ctx, "u1", "Ana")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conversation.StateExpenseAskCategory, got.State)
	assert.Equal(t, "m1", got.LastProcessedMessageID)
	assert.Equal(t, conversation.ExpenseDraft{Amount: core.Money{Cents: 5000}}, got.Draft)
}

func TestLoadConversationUpdatesDisplayName(t *testing.T) {
	ctx := context.Background()
	s := New()

	c, _, err := s.LoadConversation(ctx, "u1", "Ana")
	require.NoError(t, err)
	require.NoError(t, s.SaveConversation(ctx, c))

	tests := []struct {
		name string
		hint string
		want string
	}{
		{name: "no hint keeps the name", hint: "", want: "Ana"},
		{name: "same name", hint: "Ana", want: "Ana"},
		{name: "changed name", hint: "Ana Maria", want: "Ana Maria"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, created, err := s.LoadConversation(ctx, "u1", tt.hint)
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, tt.want, got.DisplayName)
		})
	}
}

func TestMonthOverview(t *testing.T) {
	ctx := context.Background()
	s := New()
	add := func(kind core.TransactionKind, cents int64, cat string, date core.Date) {
		t.Helper()
		_, err := s.InsertTransaction(ctx, core.Transaction{
			UserID: "u1", Kind: kind, Amount: core.Money{Cents: cents},
			Category: cat, Description: "x", Date: date,
		})
		require.NoError(t, err)
	}
	march := core.NewDate(2025, 3, 10)
	add(core.Income, 300000, "Salário", march)
	add(core.Expense, 5000, "Alimentação", march)
	add(core.Expense, 2500, "Alimentação", march)
	add(core.Expense, 9000, "Transporte", march)
	add(core.Expense, 1000, "Lazer", core.NewDate(2025, 2, 28))

	o, err := s.MonthOverview(ctx, "u1", 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(300000), o.Income.Cents)
	assert.Equal(t, int64(16500), o.Expenses.Cents)
	assert.Equal(t, []core.CategoryAmount{
		{Name: "Alimentação", Amount: core.Money{Cents: 7500}},
		{Name: "Transporte", Amount: core.Money{Cents: 9000}},
	}, o.ByCategory)

	other, err := s.MonthOverview(ctx, "u2", 2025, 3)
	require.NoError(t, err)
	assert.Zero(t, other.Expenses.Cents)

	_, err = s.MonthOverview(ctx, "u1", 2025, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestInsertTransactionValidates(t *testing.T) {
	_, err := New().InsertTransaction(context.Background(), core.Transaction{UserID: "u1", Kind: core.Expense})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestExportStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	var ids []int64
	for i := 0; i < 3; i++ {
		tx, err := s.InsertTransaction(ctx, core.Transaction{
			UserID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 100},
			Category: "Outros", Description: "x", Date: core.NewDate(2025, 1, 1),
		})
		require.NoError(t, err)
		ids = append(ids, tx.ID)
	}

	require.NoError(t, s.MarkExported(ctx, ids[0]))
	require.NoError(t, s.MarkExportFailed(ctx, ids[1], "quota"))

	pending, err := s.PendingExports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[1], pending[0].ID)

	limited, err := s.PendingExports(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	status, err := s.ExportStatus(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, core.SyncError, status)

	assert.ErrorIs(t, s.MarkExported(ctx, 999), core.ErrNotFound)
}

func TestCards(t *testing.T) {
	ctx := context.Background()
	s := New()
	card := core.Card{UserID: "u1", Name: "Nubank Roxinho", Nickname: "Nubank", DueDay: 10}

	saved, err := s.AddCard(ctx, card)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	card.Nickname = "NUBANK"
	_, err = s.AddCard(ctx, card)
	assert.ErrorIs(t, err, core.ErrDuplicateCard)

	card.UserID = "u2"
	_, err = s.AddCard(ctx, card)
	assert.NoError(t, err, "nicknames are unique per user only")

	require.NoError(t, s.RemoveCard(ctx, "u1", "nubank"))
	cards, err := s.ListCards(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.ErrorIs(t, s.RemoveCard(ctx, "u1", "nubank"), core.ErrNotFound)
}

func TestGoals(t *testing.T) {
	ctx := context.Background()
	s := New()
	g, err := core.NewGoal("u1", "Viagem", core.Money{Cents: 500000}, 10, time.Now())
	require.NoError(t, err)

	saved, err := s.AddGoal(ctx, g)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	goals, err := s.ListGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, int64(50000), goals[0].MonthlyTarget.Cents)
}

func TestScheduledExpenses(t *testing.T) {
	ctx := context.Background()
	s := New()
	mk := func(user, name string, due core.Date, active bool) core.ScheduledExpense {
		e, err := s.AddScheduledExpense(ctx, core.ScheduledExpense{
			UserID: user, Name: name, Amount: core.Money{Cents: 1000}, Category: "Moradia",
			Type: core.Recurring, RecurrenceDay: due.Day(), NextDueDate: due, Active: active,
		})
		require.NoError(t, err)
		return e
	}
	mk("u1", "Aluguel", core.NewDate(2025, 4, 5), true)
	internet := mk("u1", "Internet", core.NewDate(2025, 3, 20), true)
	mk("u1", "Antigo", core.NewDate(2025, 1, 1), false)
	mk("u2", "Luz", core.NewDate(2025, 3, 1), true)

	list, err := s.ListScheduledExpenses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Internet", list[0].Name)
	assert.Equal(t, "Aluguel", list[1].Name)

	all, err := s.ActiveScheduledExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	internet.Active = false
	require.NoError(t, s.UpdateScheduledExpense(ctx, internet))
	list, err = s.ListScheduledExpenses(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
