package backend

import (
	"context"
	"fmt"

	"poupazap/internal/amqp"
	"poupazap/internal/cache"
	"poupazap/internal/conversation"
	"poupazap/internal/log"
	"poupazap/internal/memory"
	"poupazap/internal/services"
	"poupazap/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var repo Repository
	switch config.Type {
	case SQLiteBackend:
		sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		repo = sqliteRepo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		repo = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// AMQP is optional: the export sweep covers whatever is not published.
	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", log.FieldError, err)
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	ledger := services.NewLedgerService(repo, publisher)
	b := &Backend{
		Repository:    repo,
		Conversations: repo,
		Ledger:        ledger,
		Cleanup:       ledger.Close,
	}

	if config.ConversationCacheSize > 0 {
		b.ConversationCache = cache.NewLRUCache[*conversation.Conversation](config.ConversationCacheSize, config.ConversationCacheTTL)
		b.Conversations = cache.NewConversationStore(repo, b.ConversationCache)
	}

	f.logger.InfoContext(ctx, "Backend ready",
		"type", config.Type.String(),
		"amqp_enabled", publisher != nil,
		"conversation_cache", config.ConversationCacheSize)
	return b, nil
}
