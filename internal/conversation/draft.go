package conversation

import (
	"encoding/json"
	"fmt"

	"poupazap/internal/core"
)

// Draft is the data a form has collected so far. Exactly one flow is
// active at a time, so a conversation holds at most one draft.
type Draft interface {
	draftKind() string
}

type ExpenseDraft struct {
	Amount      core.Money
	Category    string
	Description string
	CardID      int64
	IsVoice     bool
}

type IncomeDraft struct {
	Amount      core.Money
	Description string
	IsVoice     bool
}

type GoalDraft struct {
	Name   string
	Value  core.Money
	Months int
}

const (
	kindExpense = "expense"
	kindIncome  = "income"
	kindGoal    = "goal"
)

func (ExpenseDraft) draftKind() string { return kindExpense }
func (IncomeDraft) draftKind() string  { return kindIncome }
func (GoalDraft) draftKind() string    { return kindGoal }

// draftRecord is the persisted shape of every draft kind.
type draftRecord struct {
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	CardID      int64  `json:"card_id,omitempty"`
	IsVoice     bool   `json:"is_voice,omitempty"`
	Name        string `json:"name,omitempty"`
	Months      int    `json:"months,omitempty"`
}

// MarshalDraft encodes d for storage. A nil draft encodes to nil.
func MarshalDraft(d Draft) ([]byte, error) {
	var r draftRecord
	switch v := d.(type) {
	case nil:
		return nil, nil
	case ExpenseDraft:
		r = draftRecord{
			Kind:        kindExpense,
			AmountCents: v.Amount.Cents,
			Category:    v.Category,
			Description: v.Description,
			CardID:      v.CardID,
			IsVoice:     v.IsVoice,
		}
	case IncomeDraft:
		r = draftRecord{
			Kind:        kindIncome,
			AmountCents: v.Amount.Cents,
			Description: v.Description,
			IsVoice:     v.IsVoice,
		}
	case GoalDraft:
		r = draftRecord{
			Kind:        kindGoal,
			AmountCents: v.Value.Cents,
			Name:        v.Name,
			Months:      v.Months,
		}
	default:
		return nil, fmt.Errorf("unsupported draft %T", d)
	}
	return json.Marshal(r)
}

// UnmarshalDraft decodes what MarshalDraft produced. Empty input and "{}"
// decode to a nil draft.
func UnmarshalDraft(data []byte) (Draft, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var r draftRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	switch r.Kind {
	case "":
		return nil, nil
	case kindExpense:
		return ExpenseDraft{
			Amount:      core.Money{Cents: r.AmountCents},
			Category:    r.Category,
			Description: r.Description,
			CardID:      r.CardID,
			IsVoice:     r.IsVoice,
		}, nil
	case kindIncome:
		return IncomeDraft{
			Amount:      core.Money{Cents: r.AmountCents},
			Description: r.Description,
			IsVoice:     r.IsVoice,
		}, nil
	case kindGoal:
		return GoalDraft{
			Name:   r.Name,
			Value:  core.Money{Cents: r.AmountCents},
			Months: r.Months,
		}, nil
	default:
		return nil, fmt.Errorf("decode draft: unknown kind %q", r.Kind)
	}
}
