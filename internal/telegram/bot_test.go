package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poupazap/internal/dispatch"
	"poupazap/internal/log"
)

type fakeAPI struct {
	mu       sync.Mutex
	updates  chan tgbotapi.Update
	sent     []tgbotapi.MessageConfig
	sendErrs []error
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return tgbotapi.Message{}, err
	}
	return tgbotapi.Message{}, nil
}

type recordingSubmitter struct {
	mu   sync.Mutex
	msgs []dispatch.Message
	err  error
}

func (s *recordingSubmitter) Submit(_ context.Context, msg dispatch.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func (s *recordingSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func textUpdate(chatID int64, id int, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: id,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{FirstName: "Ana"},
		Text:      text,
	}}
}

func TestToMessage(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		want   dispatch.Message
		ok     bool
	}{
		{
			name:   "text",
			update: textUpdate(5511, 7, "gastei 30 reais de uber"),
			want:   dispatch.Message{UserID: "5511", MessageID: "7", DisplayName: "Ana", Text: "gastei 30 reais de uber"},
			ok:     true,
		},
		{
			name: "voice",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID: 8, Chat: &tgbotapi.Chat{ID: 42}, Voice: &tgbotapi.Voice{FileID: "file-1"},
			}},
			want: dispatch.Message{UserID: "42", MessageID: "8", IsVoice: true, AudioRef: "file-1"},
			ok:   true,
		},
		{
			name: "caption",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID: 9, Chat: &tgbotapi.Chat{ID: 42}, From: &tgbotapi.User{UserName: "ana_b"}, Caption: "menu",
			}},
			want: dispatch.Message{UserID: "42", MessageID: "9", DisplayName: "ana_b", Text: "menu"},
			ok:   true,
		},
		{name: "sticker only", update: textUpdate(1, 1, "   ")},
		{name: "no message", update: tgbotapi.Update{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToMessage(tt.update)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBot_Run(t *testing.T) {
	api := newFakeAPI()
	sub := &recordingSubmitter{}
	b := New(api, time.Minute, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, sub) }()

	api.updates <- textUpdate(1, 1, "oi")
	api.updates <- tgbotapi.Update{}
	api.updates <- textUpdate(2, 1, "menu")

	require.Eventually(t, func() bool { return sub.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.True(t, api.stopped)
}

func TestBot_RunStopsWhenDispatcherCloses(t *testing.T) {
	api := newFakeAPI()
	sub := &recordingSubmitter{err: dispatch.ErrClosed}
	b := New(api, time.Minute, log.Discard())

	api.updates <- textUpdate(1, 1, "oi")
	assert.NoError(t, b.Run(context.Background(), sub))
}

func TestBot_SendText(t *testing.T) {
	api := newFakeAPI()
	b := New(api, time.Minute, log.Discard())

	require.NoError(t, b.SendText(context.Background(), "5511", "*Menu*"))
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(5511), api.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, api.sent[0].ParseMode)

	api.sendErrs = []error{errors.New("Bad Request: can't parse entities: Can't find end of the entity")}
	require.NoError(t, b.SendText(context.Background(), "5511", "gasto_no_mercado"))
	require.Len(t, api.sent, 3)
	assert.Empty(t, api.sent[2].ParseMode, "retried as plain text")

	api.sendErrs = []error{errors.New("Forbidden: bot was blocked by the user")}
	assert.Error(t, b.SendText(context.Background(), "5511", "oi"))

	assert.Error(t, b.SendText(context.Background(), "not-a-chat", "oi"))
}
