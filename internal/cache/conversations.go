package cache

import (
	"context"

	"poupazap/internal/conversation"
)

// ConversationStore is a read-through cache in front of a durable store.
// Saves go to the inner store first; the cache only ever holds what was
// persisted, so losing it costs a reload and nothing else.
type ConversationStore struct {
	inner conversation.Store
	cache Cache[*conversation.Conversation]
}

var _ conversation.Store = (*ConversationStore)(nil)

func NewConversationStore(inner conversation.Store, c Cache[*conversation.Conversation]) *ConversationStore {
	return &ConversationStore{inner: inner, cache: c}
}

func (s *ConversationStore) LoadConversation(ctx context.Context, userID, displayName string) (*conversation.Conversation, bool, error) {
	if c, ok := s.cache.Get(userID); ok {
		cp := c.Clone()
		cp.Rename(displayName)
		return cp, false, nil
	}
	c, created, err := s.inner.LoadConversation(ctx, userID, displayName)
	if err != nil {
		return nil, false, err
	}
	// a fresh record is not durable until saved
	if !created {
		s.cache.Set(userID, c.Clone())
	}
	return c, created, nil
}

func (s *ConversationStore) SaveConversation(ctx context.Context, c *conversation.Conversation) error {
	if err := s.inner.SaveConversation(ctx, c); err != nil {
		s.cache.Delete(c.UserID)
		return err
	}
	s.cache.Set(c.UserID, c.Clone())
	return nil
}
