// Package telegram adapts the Telegram Bot API to the dispatcher: long
// polling in, plain text out. The chat id is the conversation key.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"poupazap/internal/dispatch"
	"poupazap/internal/log"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Submitter is satisfied by *dispatch.Dispatcher.
type Submitter interface {
	Submit(ctx context.Context, msg dispatch.Message) error
}

type Bot struct {
	api         API
	pollTimeout time.Duration
	logger      *log.Logger
}

// NewBotAPI connects to Telegram and routes the library's own logging
// through slog.
func NewBotAPI(token string, logger *log.Logger) (*tgbotapi.BotAPI, error) {
	tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	return api, nil
}

func New(api API, pollTimeout time.Duration, logger *log.Logger) *Bot {
	return &Bot{api: api, pollTimeout: pollTimeout, logger: logger.WithComponent(log.ComponentTelegram)}
}

// Run long-polls for updates and hands each message to sub until ctx ends
// or the dispatcher closes.
func (b *Bot) Run(ctx context.Context, sub Submitter) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.pollTimeout / time.Second)
	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	b.logger.InfoContext(ctx, "Polling Telegram for updates", "timeout", cfg.Timeout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg, ok := ToMessage(update)
			if !ok {
				continue
			}
			if err := sub.Submit(ctx, msg); err != nil {
				if errors.Is(err, dispatch.ErrClosed) || ctx.Err() != nil {
					return nil
				}
				b.logger.ErrorContext(ctx, "Failed to submit message",
					log.FieldUserID, msg.UserID, log.FieldError, err)
			}
		}
	}
}

// ToMessage converts an update. Updates without text or a voice note are
// skipped.
func ToMessage(update tgbotapi.Update) (dispatch.Message, bool) {
	m := update.Message
	if m == nil || m.Chat == nil {
		return dispatch.Message{}, false
	}
	msg := dispatch.Message{
		UserID:    strconv.FormatInt(m.Chat.ID, 10),
		MessageID: strconv.Itoa(m.MessageID),
		Text:      m.Text,
	}
	if m.From != nil {
		msg.DisplayName = strings.TrimSpace(m.From.FirstName)
		if msg.DisplayName == "" {
			msg.DisplayName = m.From.UserName
		}
	}
	if m.Voice != nil {
		msg.IsVoice = true
		msg.AudioRef = m.Voice.FileID
		return msg, true
	}
	if msg.Text == "" {
		msg.Text = m.Caption
	}
	return msg, strings.TrimSpace(msg.Text) != ""
}

// SendText implements dispatch.Sender. Replies use Telegram's legacy
// Markdown; if the text does not parse as Markdown it is resent plain.
func (b *Bot) SendText(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", userID, err)
	}

	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(out); err == nil {
		return nil
	} else if !isParseError(err) {
		return fmt.Errorf("send message: %w", err)
	}

	out.ParseMode = ""
	if _, err := b.api.Send(out); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func isParseError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "can't parse entities")
}
