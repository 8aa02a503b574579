// Package dispatch runs inbound chat messages through the conversation
// machine.
//
// Every user gets a mailbox served by one goroutine, so messages from the
// same user are handled strictly in arrival order while different users
// proceed in parallel. A goroutine exits after sitting idle for
// Config.IdleTimeout and is recreated on the next message.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"poupazap/internal/conversation"
	"poupazap/internal/log"
	"poupazap/internal/metrics"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher closed")

const msgTranscriptionDisabled = "Desculpe, a função de transcrição de áudio não está habilitada."

// Message is one inbound chat message.
type Message struct {
	UserID      string
	MessageID   string
	DisplayName string
	Text        string
	IsVoice     bool
	// AudioRef identifies the voice note for the Transcriber.
	AudioRef string
}

type Sender interface {
	SendText(ctx context.Context, userID, text string) error
}

// Transcriber turns a voice note into text. An empty result means the
// audio could not be understood.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

type Config struct {
	IdleTimeout time.Duration
	MailboxSize int
	PaymentLink string
}

type Dispatcher struct {
	store       conversation.Store
	machine     *conversation.Machine
	sender      Sender
	transcriber Transcriber
	metrics     *metrics.Metrics
	logger      *log.Logger
	cfg         Config
	now         func() time.Time

	mu     sync.Mutex
	actors map[string]*actor
	closed bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

type actor struct {
	inbox   chan Message
	pending int // guarded by Dispatcher.mu
}

// New wires a dispatcher. transcriber and m may be nil.
func New(store conversation.Store, machine *conversation.Machine, sender Sender, transcriber Transcriber, m *metrics.Metrics, logger *log.Logger, cfg Config) *Dispatcher {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = 16
	}
	return &Dispatcher{
		store:       store,
		machine:     machine,
		sender:      sender,
		transcriber: transcriber,
		metrics:     m,
		logger:      logger.WithComponent(log.ComponentDispatch),
		cfg:         cfg,
		now:         time.Now,
		actors:      make(map[string]*actor),
		quit:        make(chan struct{}),
	}
}

// Submit queues msg on its user's mailbox, starting the user's loop if
// needed. It blocks only while that mailbox is full.
func (d *Dispatcher) Submit(ctx context.Context, msg Message) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	a, ok := d.actors[msg.UserID]
	if !ok {
		a = &actor{inbox: make(chan Message, d.cfg.MailboxSize)}
		d.actors[msg.UserID] = a
		d.wg.Add(1)
		d.metrics.ActorStarted()
		go d.run(msg.UserID, a)
	}
	a.pending++
	d.mu.Unlock()

	select {
	case a.inbox <- msg:
		return nil
	case <-ctx.Done():
		d.mu.Lock()
		a.pending--
		d.mu.Unlock()
		return ctx.Err()
	}
}

func (d *Dispatcher) run(userID string, a *actor) {
	defer d.wg.Done()
	defer d.metrics.ActorStopped()

	idle := time.NewTimer(d.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case msg := <-a.inbox:
			d.handle(a, msg)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(d.cfg.IdleTimeout)
		case <-idle.C:
			if d.retire(userID, a) {
				return
			}
			idle.Reset(d.cfg.IdleTimeout)
		case <-d.quit:
			// drain what was accepted before Close
			for !d.retire(userID, a) {
				select {
				case msg := <-a.inbox:
					d.handle(a, msg)
				case <-time.After(10 * time.Millisecond):
				}
			}
			return
		}
	}
}

func (d *Dispatcher) handle(a *actor, msg Message) {
	d.Process(context.Background(), msg)
	d.mu.Lock()
	a.pending--
	d.mu.Unlock()
}

// retire removes the actor if nothing is queued for it.
func (d *Dispatcher) retire(userID string, a *actor) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a.pending > 0 {
		return false
	}
	delete(d.actors, userID)
	return true
}

// Close stops accepting messages and waits for queued ones to finish or
// for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.quit)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process handles one message synchronously. Callers must not run two
// Process calls for the same user at once; Submit guarantees that.
func (d *Dispatcher) Process(ctx context.Context, msg Message) {
	start := d.now()
	defer func() { d.metrics.ObserveHandle(time.Since(start)) }()

	logger := d.logger.With(
		log.FieldUserID, msg.UserID,
		log.FieldMessageID, msg.MessageID,
		log.FieldCorrelationID, uuid.NewString(),
	)
	ctx = log.IntoContext(ctx, logger)

	// A panicking collaborator costs this message only, not the actor.
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Panic while processing message",
				log.FieldOperation, log.OpHandle,
				log.FieldError, fmt.Sprint(r),
				"stack", string(debug.Stack()))
			d.metrics.Error("panic")
			d.reply(ctx, msg.UserID, conversation.MsgInternalError)
		}
	}()

	conv, created, err := d.store.LoadConversation(ctx, msg.UserID, msg.DisplayName)
	if err != nil {
		d.fail(ctx, msg.UserID, log.OpLoad, err)
		return
	}
	if msg.MessageID != "" && conv.LastProcessedMessageID == msg.MessageID {
		logger.InfoContext(ctx, "Duplicate message ignored")
		d.metrics.Message("duplicate")
		return
	}
	if created {
		d.reply(ctx, msg.UserID, conversation.Onboarding(d.cfg.PaymentLink))
	}

	kind := "text"
	if msg.IsVoice {
		kind = "voice"
	}
	d.metrics.Message(kind)

	work := conv.Clone()
	work.LastProcessedMessageID = msg.MessageID

	text := msg.Text
	if msg.IsVoice {
		var reply string
		text, reply = d.transcribe(ctx, msg)
		if reply != "" {
			// only the message id is remembered; state and draft stay as they were
			d.save(ctx, work)
			d.reply(ctx, msg.UserID, reply)
			return
		}
	}
	if strings.TrimSpace(text) == "" {
		d.save(ctx, work)
		return
	}

	reply, outcome, err := d.machine.Handle(ctx, work, conversation.Input{Text: text, IsVoice: msg.IsVoice})
	if err != nil {
		d.fail(ctx, msg.UserID, log.OpHandle, err)
		return
	}
	d.observe(ctx, logger, outcome)

	work.UpdatedAt = d.now()
	if !d.save(ctx, work) {
		d.reply(ctx, msg.UserID, conversation.MsgInternalError)
		return
	}

	logger.DebugContext(ctx, "Message handled",
		log.FieldState, string(work.State),
		log.FieldIntent, outcome.Intent,
		log.FieldCommand, string(outcome.Command))
	d.reply(ctx, msg.UserID, reply)
}

// transcribe returns the spoken text, or a reply to send instead.
func (d *Dispatcher) transcribe(ctx context.Context, msg Message) (string, string) {
	if d.transcriber == nil {
		return "", msgTranscriptionDisabled
	}
	d.reply(ctx, msg.UserID, conversation.MsgListening)

	text, err := d.transcriber.Transcribe(ctx, msg.AudioRef)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Transcription failed",
			log.FieldOperation, log.OpTranscribe, log.FieldError, err)
		d.metrics.Error(log.OpTranscribe)
		return "", conversation.MsgAudioFailed
	}
	if strings.TrimSpace(text) == "" {
		return "", conversation.MsgAudioNotHeard
	}
	return text, ""
}

func (d *Dispatcher) observe(ctx context.Context, logger *log.Logger, o conversation.Outcome) {
	if o.Intent != "" {
		d.metrics.Intent(o.Intent)
	}
	if o.Command != "" {
		d.metrics.Command(string(o.Command))
	}
	if t := o.Committed; t != nil {
		d.metrics.Transaction(string(t.Kind))
		fields := log.NewFields().WithTransaction(t.ID, t.Amount.Cents, t.Category).WithOperation(log.OpRecord)
		logger.InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)
	}
}

func (d *Dispatcher) save(ctx context.Context, c *conversation.Conversation) bool {
	if err := d.store.SaveConversation(ctx, c); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to save conversation",
			log.FieldOperation, log.OpSave, log.FieldError, err)
		d.metrics.Error(log.OpSave)
		return false
	}
	return true
}

// fail logs a collaborator error and apologizes. Nothing is saved, so the
// user keeps the state they had before this message.
func (d *Dispatcher) fail(ctx context.Context, userID, op string, err error) {
	log.FromContext(ctx).ErrorContext(ctx, "Message processing failed",
		log.FieldOperation, op, log.FieldError, err)
	d.metrics.Error(op)
	d.reply(ctx, userID, conversation.MsgInternalError)
}

func (d *Dispatcher) reply(ctx context.Context, userID, text string) {
	if err := d.sender.SendText(ctx, userID, text); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to send reply",
			log.FieldOperation, log.OpSend, log.FieldError, err)
		d.metrics.Error(log.OpSend)
	}
}
