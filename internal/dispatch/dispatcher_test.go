package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poupazap/internal/conversation"
	"poupazap/internal/core"
	"poupazap/internal/log"
	"poupazap/internal/memory"
	"poupazap/internal/metrics"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (s *recordingSender) SendText(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = map[string][]string{}
	}
	s.sent[userID] = append(s.sent[userID], text)
	return nil
}

func (s *recordingSender) replies(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent[userID]...)
}

func (s *recordingSender) last(userID string) string {
	r := s.replies(userID)
	if len(r) == 0 {
		return ""
	}
	return r[len(r)-1]
}

type stubTranscriber struct {
	text string
	err  error
}

func (t stubTranscriber) Transcribe(context.Context, string) (string, error) {
	return t.text, t.err
}

// storeLedger records straight into the memory store.
type storeLedger struct {
	*memory.Store
	err error
}

func (l *storeLedger) RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if l.err != nil {
		return core.Transaction{}, l.err
	}
	return l.InsertTransaction(ctx, t)
}

type harness struct {
	d      *Dispatcher
	store  *memory.Store
	ledger *storeLedger
	sender *recordingSender
}

func newHarness(tr Transcriber) *harness {
	store := memory.New()
	ledger := &storeLedger{Store: store}
	machine := conversation.NewMachine(conversation.Deps{
		Ledger:    ledger,
		Cards:     store,
		Goals:     store,
		Reports:   store,
		Schedules: store,
		Now:       func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) },
	})
	sender := &recordingSender{}
	d := New(store, machine, sender, tr, metrics.New(), log.Discard(), Config{IdleTimeout: 50 * time.Millisecond})
	return &harness{d: d, store: store, ledger: ledger, sender: sender}
}

func (h *harness) process(userID, msgID, text string) {
	h.d.Process(context.Background(), Message{UserID: userID, MessageID: msgID, Text: text})
}

func (h *harness) conversation(t *testing.T, userID string) *conversation.Conversation {
	t.Helper()
	c, _, err := h.store.LoadConversation(context.Background(), userID, "")
	require.NoError(t, err)
	return c
}

func (h *harness) transactions(t *testing.T, userID string) int {
	t.Helper()
	o, err := h.store.MonthOverview(context.Background(), userID, 2025, 3)
	require.NoError(t, err)
	n := 0
	for _, c := range o.ByCategory {
		if c.Amount.Cents > 0 {
			n++
		}
	}
	if o.Income.Cents > 0 {
		n++
	}
	return n
}

func TestProcess_OnboardingOnFirstContact(t *testing.T) {
	h := newHarness(nil)

	h.process("u1", "m1", "oi")
	replies := h.sender.replies("u1")
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0], "Bem-vindo(a) ao PoupaZap")
	assert.Contains(t, replies[1], "não entendi")

	h.process("u1", "m2", "oi")
	assert.Len(t, h.sender.replies("u1"), 3, "onboarding is sent once")
}

func TestProcess_DuplicateMessageIsIgnored(t *testing.T) {
	h := newHarness(nil)

	h.process("u1", "m1", "gastei 50 reais no mercado")
	h.process("u1", "m2", "sim")
	sent := len(h.sender.replies("u1"))

	h.process("u1", "m2", "sim")
	assert.Len(t, h.sender.replies("u1"), sent, "no reply for a redelivery")
	assert.Equal(t, 1, h.transactions(t, "u1"))

	c := h.conversation(t, "u1")
	assert.Equal(t, conversation.StateMenu, c.State)
	assert.Equal(t, "m2", c.LastProcessedMessageID)
}

func TestProcess_CollaboratorFailureKeepsPreviousState(t *testing.T) {
	h := newHarness(nil)
	h.process("u1", "m1", "gastei 50 reais no mercado")
	require.Equal(t, conversation.StateConfirmQuickExpense, h.conversation(t, "u1").State)

	h.ledger.err = errors.New("disk full")
	h.process("u1", "m2", "sim")
	assert.Equal(t, conversation.MsgInternalError, h.sender.last("u1"))

	c := h.conversation(t, "u1")
	assert.Equal(t, conversation.StateConfirmQuickExpense, c.State)
	assert.Equal(t, "m1", c.LastProcessedMessageID, "a failed message may be retried")

	h.ledger.err = nil
	h.process("u1", "m2", "sim")
	assert.Contains(t, h.sender.last("u1"), "adicionada com sucesso")
	assert.Equal(t, 1, h.transactions(t, "u1"))
}

func TestProcess_LongQuickExpenseCommits(t *testing.T) {
	h := newHarness(nil)
	text := "gastei 50 reais no mercado " + strings.Repeat("abacaxi ", 40)
	require.Greater(t, utf8.RuneCountInString(text), 300)

	h.process("u1", "m1", text)
	require.Equal(t, conversation.StateConfirmQuickExpense, h.conversation(t, "u1").State)

	h.process("u1", "m2", "sim")
	assert.Contains(t, h.sender.last("u1"), "adicionada com sucesso")
	assert.Equal(t, conversation.StateMenu, h.conversation(t, "u1").State)

	tx, err := h.store.GetTransaction(context.Background(), 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, utf8.RuneCountInString(tx.Description), core.MaxDescriptionLen)
	assert.True(t, strings.HasPrefix(tx.Description, "mercado abacaxi"))
}

func TestProcess_DisplayNameFollowsTransport(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()

	h.d.Process(ctx, Message{UserID: "u1", MessageID: "m1", DisplayName: "Ana", Text: "menu"})
	assert.Equal(t, "Ana", h.conversation(t, "u1").DisplayName)

	h.d.Process(ctx, Message{UserID: "u1", MessageID: "m2", DisplayName: "Ana Maria", Text: "menu"})
	assert.Equal(t, "Ana Maria", h.conversation(t, "u1").DisplayName)
}

type panickyCards struct{}

func (panickyCards) ListCards(context.Context, string) ([]core.Card, error) {
	panic("card index corrupted")
}

func TestSubmit_PanicIsContained(t *testing.T) {
	store := memory.New()
	machine := conversation.NewMachine(conversation.Deps{
		Ledger:    &storeLedger{Store: store},
		Cards:     panickyCards{},
		Goals:     store,
		Reports:   store,
		Schedules: store,
	})
	sender := &recordingSender{}
	d := New(store, machine, sender, nil, metrics.New(), log.Discard(), Config{})
	ctx := context.Background()

	require.NoError(t, d.Submit(ctx, Message{UserID: "u1", MessageID: "m1", Text: "gastei 10 reais no mercado"}))
	require.NoError(t, d.Submit(ctx, Message{UserID: "u1", MessageID: "m2", Text: "menu"}))

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(closeCtx))

	replies := sender.replies("u1")
	require.NotEmpty(t, replies)
	assert.Contains(t, replies, conversation.MsgInternalError)
	assert.Contains(t, replies[len(replies)-1], "Escolha uma opção", "the actor keeps serving after a panic")

	c, _, err := store.LoadConversation(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "m2", c.LastProcessedMessageID)
}

func TestProcess_Voice(t *testing.T) {
	tests := []struct {
		name      string
		tr        Transcriber
		wantLast  string
		wantState conversation.State
	}{
		{name: "transcription disabled", tr: nil, wantLast: msgTranscriptionDisabled, wantState: conversation.StateMenu},
		{name: "transcriber error", tr: stubTranscriber{err: errors.New("boom")}, wantLast: conversation.MsgAudioFailed, wantState: conversation.StateMenu},
		{name: "nothing heard", tr: stubTranscriber{text: "  "}, wantLast: conversation.MsgAudioNotHeard, wantState: conversation.StateMenu},
		{
			name:      "recognized",
			tr:        stubTranscriber{text: "gastei 30 reais de uber"},
			wantLast:  "🎙️ Entendi: Gastou R$ 30,00 em Transporte (uber). Correto? (Sim/Não)",
			wantState: conversation.StateConfirmQuickExpense,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.tr)
			h.d.Process(context.Background(), Message{UserID: "u1", MessageID: "v1", IsVoice: true, AudioRef: "file-1"})

			assert.Equal(t, tt.wantLast, h.sender.last("u1"))
			c := h.conversation(t, "u1")
			assert.Equal(t, tt.wantState, c.State)
			assert.Equal(t, "v1", c.LastProcessedMessageID)
		})
	}
}

func TestProcess_VoiceFlagReachesLedger(t *testing.T) {
	h := newHarness(stubTranscriber{text: "recebi 100 reais de freela"})
	h.d.Process(context.Background(), Message{UserID: "u1", MessageID: "v1", IsVoice: true})
	assert.Contains(t, h.sender.replies("u1"), conversation.MsgListening)

	h.process("u1", "m2", "sim")
	tx, err := h.store.GetTransaction(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, tx.IsVoice)
	assert.Equal(t, core.Income, tx.Kind)
}

func TestSubmit_SerializesPerUser(t *testing.T) {
	h := newHarness(nil)
	ctx := context.Background()
	script := []string{"1", "50", "alimentacao", "almoço"}

	var wg sync.WaitGroup
	for u := 0; u < 5; u++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for i, text := range script {
				assert.NoError(t, h.d.Submit(ctx, Message{UserID: user, MessageID: fmt.Sprint(i), Text: text}))
			}
		}(fmt.Sprintf("u%d", u))
	}
	wg.Wait()

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, h.d.Close(closeCtx))

	for u := 0; u < 5; u++ {
		user := fmt.Sprintf("u%d", u)
		assert.Equal(t, "Despesa de R$ 50,00 em Alimentação (almoço) adicionada com sucesso!", h.sender.last(user))
		assert.Equal(t, 1, h.transactions(t, user))
	}
}

func TestSubmit_AfterClose(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, h.d.Close(context.Background()))
	err := h.d.Submit(context.Background(), Message{UserID: "u1", Text: "menu"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubmit_IdleActorIsRetired(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, h.d.Submit(context.Background(), Message{UserID: "u1", MessageID: "m1", Text: "menu"}))

	assert.Eventually(t, func() bool {
		h.d.mu.Lock()
		defer h.d.mu.Unlock()
		return len(h.d.actors) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, h.sender.last("u1"), "Escolha uma opção")
}
