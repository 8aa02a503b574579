// Package memory is a process-local data backend. It keeps everything in
// slices behind one mutex and is used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"poupazap/internal/conversation"
	"poupazap/internal/core"
)

type storedConversation struct {
	conv  conversation.Conversation
	draft []byte
}

type storedTransaction struct {
	tx        core.Transaction
	status    core.SyncStatus
	syncError string
}

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64

	conversations map[string]storedConversation
	transactions  []storedTransaction
	cards         []core.Card
	goals         []core.Goal
	scheduled     []core.ScheduledExpense
}

func New() *Store {
	return &Store{
		now:           time.Now,
		conversations: make(map[string]storedConversation),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// LoadConversation returns the stored record or a fresh default one. The
// fresh record is not persisted until SaveConversation.
func (s *Store) LoadConversation(_ context.Context, userID, displayName string) (*conversation.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.conversations[userID]
	if !ok {
		return conversation.New(userID, displayName, s.now()), true, nil
	}
	draft, err := conversation.UnmarshalDraft(stored.draft)
	if err != nil {
		return nil, false, fmt.Errorf("load conversation %s: %w", userID, err)
	}
	c := stored.conv.Clone()
	c.Draft = draft
	c.Rename(displayName)
	return c, false, nil
}

// SaveConversation stores a copy of c with its draft encoded, so later
// mutations by the caller do not leak in.
func (s *Store) SaveConversation(_ context.Context, c *conversation.Conversation) error {
	draft, err := conversation.MarshalDraft(c.Draft)
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", c.UserID, err)
	}
	cp := c.Clone()
	cp.Draft = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.UserID] = storedConversation{conv: *cp, draft: draft}
	return nil
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	s.transactions = append(s.transactions, storedTransaction{tx: t, status: core.SyncPending})
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.transactions {
		if st.tx.ID == id {
			return st.tx, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
}

// PendingExports returns up to limit transactions not yet exported, oldest
// first.
func (s *Store) PendingExports(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, st := range s.transactions {
		if st.status != core.SyncSynced {
			out = append(out, st.tx)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, id int64) error {
	return s.setStatus(id, core.SyncSynced, "")
}

func (s *Store) MarkExportFailed(_ context.Context, id int64, reason string) error {
	return s.setStatus(id, core.SyncError, reason)
}

// ExportStatus reports the sync status of one transaction.
func (s *Store) ExportStatus(_ context.Context, id int64) (core.SyncStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.transactions {
		if st.tx.ID == id {
			return st.status, nil
		}
	}
	return "", core.ErrNotFound
}

func (s *Store) setStatus(id int64, status core.SyncStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		if s.transactions[i].tx.ID == id {
			s.transactions[i].status = status
			s.transactions[i].syncError = reason
			return nil
		}
	}
	return fmt.Errorf("mark transaction %d: %w", id, core.ErrNotFound)
}

// MonthOverview sums the user's transactions dated in year/month.
func (s *Store) MonthOverview(_ context.Context, userID string, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, core.ErrInvalidMonth
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o := core.MonthOverview{Year: year, Month: month}
	byCat := map[string]int64{}
	var order []string
	for _, st := range s.transactions {
		t := st.tx
		if t.UserID != userID || t.Date.Year() != year || int(t.Date.Month()) != month {
			continue
		}
		switch t.Kind {
		case core.Income:
			o.Income = o.Income.Add(t.Amount)
		case core.Expense:
			o.Expenses = o.Expenses.Add(t.Amount)
			if _, seen := byCat[t.Category]; !seen {
				order = append(order, t.Category)
			}
			byCat[t.Category] += t.Amount.Cents
		}
	}
	for _, c := range order {
		o.ByCategory = append(o.ByCategory, core.CategoryAmount{Name: c, Amount: core.Money{Cents: byCat[c]}})
	}
	return o, nil
}

func (s *Store) ListCards(_ context.Context, userID string) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Card
	for _, c := range s.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// AddCard registers a card; nicknames are unique per user ignoring case
// and accents.
func (s *Store) AddCard(_ context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cards {
		if existing.UserID == c.UserID && core.Normalize(existing.Nickname) == core.Normalize(c.Nickname) {
			return core.Card{}, core.ErrDuplicateCard
		}
	}
	c.ID = s.id()
	s.cards = append(s.cards, c)
	return c, nil
}

func (s *Store) RemoveCard(_ context.Context, userID, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := core.Normalize(strings.TrimSpace(nickname))
	for i, c := range s.cards {
		if c.UserID == userID && core.Normalize(c.Nickname) == key {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove card %q: %w", nickname, core.ErrNotFound)
}

func (s *Store) AddGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	s.goals = append(s.goals, g)
	return g, nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) AddScheduledExpense(_ context.Context, e core.ScheduledExpense) (core.ScheduledExpense, error) {
	if err := e.Validate(); err != nil {
		return core.ScheduledExpense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.scheduled = append(s.scheduled, e)
	return e, nil
}

// ListScheduledExpenses returns the user's active entries by next due date.
func (s *Store) ListScheduledExpenses(_ context.Context, userID string) ([]core.ScheduledExpense, error) {
	return s.activeScheduled(func(e core.ScheduledExpense) bool { return e.UserID == userID }), nil
}

// ActiveScheduledExpenses returns every active entry across users.
func (s *Store) ActiveScheduledExpenses(_ context.Context) ([]core.ScheduledExpense, error) {
	return s.activeScheduled(func(core.ScheduledExpense) bool { return true }), nil
}

func (s *Store) activeScheduled(keep func(core.ScheduledExpense) bool) []core.ScheduledExpense {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ScheduledExpense
	for _, e := range s.scheduled {
		if e.Active && keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextDueDate.Before(out[j].NextDueDate.Time)
	})
	return out
}

func (s *Store) UpdateScheduledExpense(_ context.Context, e core.ScheduledExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.scheduled {
		if s.scheduled[i].ID == e.ID {
			s.scheduled[i] = e
			return nil
		}
	}
	return fmt.Errorf("update scheduled expense %d: %w", e.ID, core.ErrNotFound)
}

func (s *Store) Close() error { return nil }

// Ping always succeeds; the store lives in process.
func (s *Store) Ping(context.Context) error { return nil }
