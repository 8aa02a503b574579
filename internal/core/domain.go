package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Expense TransactionKind = "expense"
	Income  TransactionKind = "income"
)

const (
	Installment ScheduleType = "installment"
	Recurring   ScheduleType = "recurring"
)

// Export status of a ledger row.
const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// Rune limits for free text stored with an entry.
const (
	MaxDescriptionLen = 200
	MaxNameLen        = 80
)

type (
	TransactionKind string
	ScheduleType    string
	SyncStatus      string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is one ledger entry owned by a user.
	Transaction struct {
		ID          int64
		UserID      string
		Kind        TransactionKind
		Amount      Money
		Category    string
		Description string
		CardID      int64 // zero when not paid with a registered card
		IsVoice     bool
		Date        Date
	}

	Card struct {
		ID         int64
		UserID     string
		Name       string
		Nickname   string
		Limit      Money
		ClosingDay int
		DueDay     int
	}

	Goal struct {
		ID            int64
		UserID        string
		Name          string
		Target        Money
		Current       Money
		Months        int
		MonthlyTarget Money
		CreatedAt     time.Time
	}

	// ScheduledExpense is a bill paid automatically on its due date, either a
	// fixed number of installments or an open-ended monthly recurrence.
	ScheduledExpense struct {
		ID                 int64
		UserID             string
		Name               string
		Amount             Money
		Category           string
		Type               ScheduleType
		RecurrenceType     string
		RecurrenceDay      int
		TotalInstallments  int
		InstallmentsPaid   int
		NextDueDate        Date
		ReminderEnabled    bool
		ReminderDaysBefore int
		Active             bool
		CardID             int64
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidMonths    = errors.New("invalid number of months")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyUser        = errors.New("empty user id")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrNotFound         = errors.New("not found")
	ErrDuplicateCard    = errors.New("card nickname already registered")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today truncates now to a calendar day in now's location.
func Today(now time.Time) Date {
	y, m, d := now.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, now.Location())}
}

// BR renders the date as dd/mm/yyyy.
func (d Date) BR() string {
	if d.IsZero() {
		return "N/A"
	}
	return d.Format("02/01/2006")
}

// MaxCents caps a single amount at R$ 1.000.000.000,00, well inside int64.
const MaxCents int64 = 100_000_000_000

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxCents {
		return ErrInvalidAmount
	}
	return nil
}

func (k TransactionKind) Valid() bool {
	return k == Expense || k == Income
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Nickname) == "" {
		return ErrEmptyName
	}
	if c.Limit.Cents < 0 {
		return ErrInvalidAmount
	}
	if c.ClosingDay < 0 || c.ClosingDay > 31 || c.DueDay < 0 || c.DueDay > 31 {
		return ErrInvalidDay
	}
	return nil
}

// NewGoal builds a goal splitting the target evenly across months.
func NewGoal(userID, name string, target Money, months int, now time.Time) (Goal, error) {
	g := Goal{
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Target:    target,
		Months:    months,
		CreatedAt: now,
	}
	if err := g.Validate(); err != nil {
		return Goal{}, err
	}
	g.MonthlyTarget = target.Split(months)
	return g, nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrEmptyUser
	}
	if g.Name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(g.Name) > MaxNameLen {
		return errors.New("goal name too long (max 80 characters)")
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Months <= 0 {
		return ErrInvalidMonths
	}
	return nil
}

func (s ScheduledExpense) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if err := s.NextDueDate.Validate(); err != nil {
		return fmt.Errorf("invalid next due date: %w", err)
	}
	switch s.Type {
	case Installment:
		if s.TotalInstallments <= 0 {
			return errors.New("installment schedule needs a positive total")
		}
	case Recurring:
		if s.RecurrenceDay < 1 || s.RecurrenceDay > 31 {
			return ErrInvalidDay
		}
	default:
		return fmt.Errorf("invalid schedule type %q", s.Type)
	}
	if s.ReminderDaysBefore < 0 {
		return errors.New("reminder days cannot be negative")
	}
	return nil
}
