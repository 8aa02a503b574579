package backend

import (
	"context"
	"io"

	"poupazap/internal/cache"
	"poupazap/internal/conversation"
	"poupazap/internal/core"
	"poupazap/internal/services"
	"poupazap/internal/worker"
)

// Repository is everything a data backend provides. Both the SQLite and
// the in-memory stores satisfy it.
type Repository interface {
	conversation.Store
	conversation.CardDirectory
	conversation.GoalBook
	conversation.Reports
	conversation.ScheduleBook
	services.TransactionStore
	services.ScheduleStore
	worker.ExportStore

	AddCard(ctx context.Context, c core.Card) (core.Card, error)
	RemoveCard(ctx context.Context, userID, nickname string) error
	AddScheduledExpense(ctx context.Context, e core.ScheduledExpense) (core.ScheduledExpense, error)
	Ping(ctx context.Context) error
	io.Closer
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend bundles the wired data layer.
type Backend struct {
	Repository Repository
	// Conversations is Repository, behind a read-through cache when one
	// is configured.
	Conversations conversation.Store
	// ConversationCache is nil when caching is off.
	ConversationCache *cache.LRUCache[*conversation.Conversation]
	Ledger            *services.LedgerService
	Cleanup           CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
