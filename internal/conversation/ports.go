package conversation

import (
	"context"

	"poupazap/internal/core"
)

// Store loads and saves conversations. Load creates a default record on
// first contact and reports that it did.
type Store interface {
	LoadConversation(ctx context.Context, userID, displayName string) (conv *Conversation, created bool, err error)
	SaveConversation(ctx context.Context, c *Conversation) error
}

// Ledger persists a transaction and returns it with its id assigned.
type Ledger interface {
	RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
}

type CardDirectory interface {
	ListCards(ctx context.Context, userID string) ([]core.Card, error)
}

type GoalBook interface {
	AddGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
}

type Reports interface {
	MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error)
}

type ScheduleBook interface {
	ListScheduledExpenses(ctx context.Context, userID string) ([]core.ScheduledExpense, error)
}
