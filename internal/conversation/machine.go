package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"poupazap/internal/core"
	"poupazap/internal/intent"
)

// Deps are the collaborators the machine calls into. Every one of them is
// required.
type Deps struct {
	Ledger    Ledger
	Cards     CardDirectory
	Goals     GoalBook
	Reports   Reports
	Schedules ScheduleBook
	Now       func() time.Time
}

// Machine decides the reply to one message given the user's conversation.
// It mutates the conversation it is handed; callers pass a copy and keep
// it only when Handle returns without error.
type Machine struct {
	deps Deps
	now  func() time.Time
}

func NewMachine(deps Deps) *Machine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Machine{deps: deps, now: now}
}

// Input is one inbound message after transcription.
type Input struct {
	Text    string
	IsVoice bool
}

// Outcome describes what a message did, for logging and metrics.
type Outcome struct {
	Intent    string
	Command   Command
	Committed *core.Transaction
}

var leadingIntRe = regexp.MustCompile(`^\d+`)

// Handle runs one transition. A returned error comes from a collaborator;
// validation problems are answered with a re-prompt instead.
func (m *Machine) Handle(ctx context.Context, c *Conversation, in Input) (string, Outcome, error) {
	text := strings.TrimSpace(in.Text)
	var out Outcome

	if c.State.Open() {
		it, err := intent.Recognize(ctx, text, intent.Env{
			Categories: c.categories(),
			Cards: func(ctx context.Context) ([]core.Card, error) {
				return m.deps.Cards.ListCards(ctx, c.UserID)
			},
		})
		if err != nil {
			return "", out, err
		}
		if it != nil {
			out.Intent = it.Kind()
			return m.startIntent(c, it, in.IsVoice), out, nil
		}
	}

	if cmd, ok := ParseCommand(text, c.State.Open()); ok {
		out.Command = cmd
		reply, err := m.runCommand(ctx, c, cmd)
		return reply, out, err
	}

	reply, err := m.step(ctx, c, text, &out)
	return reply, out, err
}

func (m *Machine) startIntent(c *Conversation, it intent.Intent, isVoice bool) string {
	switch v := it.(type) {
	case intent.QuickExpense:
		d := ExpenseDraft{
			Amount:      v.Amount,
			Category:    v.Category,
			Description: clip(v.Description, core.MaxDescriptionLen),
			CardID:      v.CardID,
			IsVoice:     isVoice,
		}
		c.State, c.Draft = StateConfirmQuickExpense, d
		return confirmExpense(d)
	case intent.QuickIncome:
		d := IncomeDraft{Amount: v.Amount, Description: clip(v.Description, core.MaxDescriptionLen), IsVoice: isVoice}
		c.State, c.Draft = StateConfirmQuickIncome, d
		return confirmIncome(d)
	case intent.CreateGoal:
		d := GoalDraft{Name: clip(v.Name, core.MaxNameLen), Value: v.Value, Months: v.Months}
		c.Draft = d
		if d.Value.Cents > 0 {
			c.State = StateConfirmVoiceGoal
			return confirmGoal(d)
		}
		c.State = StateGoalAskValueFromVoice
		return askGoalValueFromVoice(d)
	default:
		c.reset()
		return msgNotUnderstood
	}
}

func (m *Machine) runCommand(ctx context.Context, c *Conversation, cmd Command) (string, error) {
	// any command abandons the form in progress
	c.reset()

	switch cmd {
	case CmdMenu:
		return msgMenu, nil
	case CmdAddExpense:
		c.State, c.Draft = StateExpenseAskAmount, ExpenseDraft{}
		return msgAskExpenseAmount, nil
	case CmdAddIncome:
		c.State, c.Draft = StateIncomeAskAmount, IncomeDraft{}
		return msgAskIncomeAmount, nil
	case CmdAddGoal:
		c.State, c.Draft = StateGoalAskName, GoalDraft{}
		return msgAskGoalName, nil
	case CmdViewBalance, CmdExpensesByCategory:
		now := m.now()
		o, err := m.deps.Reports.MonthOverview(ctx, c.UserID, now.Year(), int(now.Month()))
		if err != nil {
			return "", fmt.Errorf("month overview: %w", err)
		}
		if cmd == CmdViewBalance {
			return balanceReport(o), nil
		}
		return categoryReport(o), nil
	case CmdGoals:
		goals, err := m.deps.Goals.ListGoals(ctx, c.UserID)
		if err != nil {
			return "", fmt.Errorf("list goals: %w", err)
		}
		return goalList(goals), nil
	case CmdCreditCards:
		cards, err := m.deps.Cards.ListCards(ctx, c.UserID)
		if err != nil {
			return "", fmt.Errorf("list cards: %w", err)
		}
		return cardList(cards), nil
	case CmdScheduledExpenses:
		items, err := m.deps.Schedules.ListScheduledExpenses(ctx, c.UserID)
		if err != nil {
			return "", fmt.Errorf("list scheduled expenses: %w", err)
		}
		return scheduledList(items), nil
	case CmdHelp:
		return msgHelp, nil
	case CmdExit:
		return msgExit, nil
	default:
		return msgNotUnderstood, nil
	}
}

// step handles free text according to the current state.
func (m *Machine) step(ctx context.Context, c *Conversation, text string, out *Outcome) (string, error) {
	switch c.State {
	case StateExpenseAskAmount:
		d, _ := c.Draft.(ExpenseDraft)
		amount, err := core.ParseMoney(text)
		if err != nil {
			return msgBadExpenseAmount, nil
		}
		d.Amount = amount
		c.State, c.Draft = StateExpenseAskCategory, d
		return msgAskCategory, nil

	case StateExpenseAskCategory:
		d, ok := c.Draft.(ExpenseDraft)
		if !ok {
			break
		}
		cat, ok := core.ResolveCategory(text, c.categories())
		if !ok {
			return invalidCategory(text, c.categories()), nil
		}
		d.Category = cat
		c.State, c.Draft = StateExpenseAskDesc, d
		return msgAskExpenseDesc, nil

	case StateExpenseAskDesc:
		d, ok := c.Draft.(ExpenseDraft)
		if !ok {
			break
		}
		d.Description = clip(text, core.MaxDescriptionLen)
		if err := m.recordExpense(ctx, c, d, out); err != nil {
			return "", err
		}
		c.reset()
		return expenseAdded(d), nil

	case StateIncomeAskAmount:
		d, _ := c.Draft.(IncomeDraft)
		amount, err := core.ParseMoney(text)
		if err != nil {
			return msgBadIncomeAmount, nil
		}
		d.Amount = amount
		c.State, c.Draft = StateIncomeAskDesc, d
		return msgAskIncomeDesc, nil

	case StateIncomeAskDesc:
		d, ok := c.Draft.(IncomeDraft)
		if !ok {
			break
		}
		d.Description = clip(text, core.MaxDescriptionLen)
		if err := m.recordIncome(ctx, c, d, out); err != nil {
			return "", err
		}
		c.reset()
		return incomeAdded(d), nil

	case StateConfirmQuickExpense:
		d, ok := c.Draft.(ExpenseDraft)
		if !ok {
			break
		}
		if !affirmative(text) {
			c.reset()
			return msgExpenseDeclined, nil
		}
		if err := m.recordExpense(ctx, c, d, out); err != nil {
			return "", err
		}
		c.reset()
		return expenseAdded(d), nil

	case StateConfirmQuickIncome:
		d, ok := c.Draft.(IncomeDraft)
		if !ok {
			break
		}
		if !affirmative(text) {
			c.reset()
			return msgIncomeDeclined, nil
		}
		if err := m.recordIncome(ctx, c, d, out); err != nil {
			return "", err
		}
		c.reset()
		return incomeAdded(d), nil

	case StateGoalAskName:
		name := clip(text, core.MaxNameLen)
		c.State, c.Draft = StateGoalAskValue, GoalDraft{Name: name}
		return askGoalValue(name), nil

	case StateGoalAskValue:
		d, ok := c.Draft.(GoalDraft)
		if !ok {
			break
		}
		value, err := core.ParseMoney(text)
		if err != nil {
			return msgBadGoalValue, nil
		}
		d.Value = value
		c.State, c.Draft = StateGoalAskMonths, d
		return askGoalMonths(value), nil

	case StateGoalAskMonths:
		d, ok := c.Draft.(GoalDraft)
		if !ok {
			break
		}
		n, err := strconv.Atoi(leadingIntRe.FindString(text))
		if err != nil || n <= 0 {
			return msgBadGoalMonths, nil
		}
		d.Months = n
		return m.commitGoal(ctx, c, d)

	case StateGoalAskValueFromVoice:
		d, ok := c.Draft.(GoalDraft)
		if !ok {
			break
		}
		value, err := core.ParseMoney(text)
		if err != nil {
			return msgBadGoalValue, nil
		}
		d.Value = value
		return m.commitGoal(ctx, c, d)

	case StateConfirmVoiceGoal:
		d, ok := c.Draft.(GoalDraft)
		if !ok {
			break
		}
		if !affirmative(text) {
			c.reset()
			return msgGoalDeclined, nil
		}
		return m.commitGoal(ctx, c, d)

	case StateAwaitingNextEntry:
		c.reset()
		return msgUnknownCommand, nil

	case StateMenu:
		c.reset()
		return msgNotUnderstood, nil
	}

	// unknown state, or a draft that does not belong to it
	slog.WarnContext(ctx, "Resetting conversation",
		"user_id", c.UserID, "state", string(c.State), "draft", fmt.Sprintf("%T", c.Draft))
	c.reset()
	return msgNotUnderstood, nil
}

func (m *Machine) recordExpense(ctx context.Context, c *Conversation, d ExpenseDraft, out *Outcome) error {
	return m.record(ctx, core.Transaction{
		UserID:      c.UserID,
		Kind:        core.Expense,
		Amount:      d.Amount,
		Category:    d.Category,
		Description: d.Description,
		CardID:      d.CardID,
		IsVoice:     d.IsVoice,
	}, out)
}

func (m *Machine) recordIncome(ctx context.Context, c *Conversation, d IncomeDraft, out *Outcome) error {
	return m.record(ctx, core.Transaction{
		UserID:      c.UserID,
		Kind:        core.Income,
		Amount:      d.Amount,
		Category:    core.IncomeCategory,
		Description: d.Description,
		IsVoice:     d.IsVoice,
	}, out)
}

func (m *Machine) record(ctx context.Context, t core.Transaction, out *Outcome) error {
	t.Date = core.Today(m.now())
	saved, err := m.deps.Ledger.RecordTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("record %s: %w", t.Kind, err)
	}
	out.Committed = &saved
	return nil
}

func (m *Machine) commitGoal(ctx context.Context, c *Conversation, d GoalDraft) (string, error) {
	g, err := core.NewGoal(c.UserID, d.Name, d.Value, d.Months, m.now())
	if err != nil {
		// only a blank name can get here; the form validated the rest
		c.State, c.Draft = StateGoalAskName, GoalDraft{}
		return msgAskGoalName, nil
	}
	saved, err := m.deps.Goals.AddGoal(ctx, g)
	if err != nil {
		return "", fmt.Errorf("add goal: %w", err)
	}
	c.reset()
	return goalAdded(saved), nil
}

// affirmative accepts "sim" in any case, with or without accents and
// trailing punctuation.
func affirmative(text string) bool {
	return core.Normalize(core.TrimPunctuation(text)) == "sim"
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
