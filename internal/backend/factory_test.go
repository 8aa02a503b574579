package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poupazap/internal/cache"
	"poupazap/internal/config"
	"poupazap/internal/core"
	"poupazap/internal/log"
	"poupazap/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:           "sqlite",
		SQLiteDBPath:          "/tmp/x.db",
		ConversationCacheSize: 10,
		ConversationCacheTTL:  time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
	assert.Equal(t, 10, cfg.ConversationCacheSize)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "sqlite", config: Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend}, wantErr: true},
		{name: "unknown type", config: Config{Type: "sheets"}, wantErr: true},
		{name: "cache without ttl", config: Config{Type: MemoryBackend, ConversationCacheSize: 5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "error: %v", err)
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	ctx := context.Background()
	b, err := NewFactory(log.Discard()).CreateBackend(ctx, Config{
		Type:                  MemoryBackend,
		ConversationCacheSize: 10,
		ConversationCacheTTL:  time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { b.Cleanup() })

	require.NotNil(t, b.ConversationCache)
	assert.IsType(t, &cache.ConversationStore{}, b.Conversations)

	saved, err := b.Ledger.RecordTransaction(ctx, core.Transaction{
		UserID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 990},
		Category: "Lazer", Description: "cinema", Date: core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)

	pending, err := b.Repository.PendingExports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, saved.ID, pending[0].ID)
	assert.NoError(t, b.Repository.Ping(ctx))
}

func TestCreateBackend_SQLiteWithoutCache(t *testing.T) {
	ctx := context.Background()
	b, err := NewFactory(log.Discard()).CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "poupazap.db"),
	})
	require.NoError(t, err)

	assert.Nil(t, b.ConversationCache)
	assert.IsType(t, &storage.SQLiteRepository{}, b.Repository)
	assert.NoError(t, b.Repository.Ping(ctx))
	assert.NoError(t, b.Cleanup())
}

func TestCreateBackend_Invalid(t *testing.T) {
	_, err := NewFactory(log.Discard()).CreateBackend(context.Background(), Config{Type: "nope"})
	assert.Error(t, err)
}
