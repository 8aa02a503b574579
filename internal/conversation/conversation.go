// Package conversation holds the per-user dialogue record and the state
// machine that turns one inbound text into a reply.
package conversation

import (
	"time"

	"poupazap/internal/core"
)

const (
	AccountActive  = "active"
	AccountPending = "pending_payment"
)

// Conversation is everything the bot remembers about one user between
// messages.
type Conversation struct {
	UserID        string
	DisplayName   string
	State         State
	Draft         Draft
	MonthlyBudget core.Money
	AccountStatus string
	Categories    []string

	// LastProcessedMessageID is the idempotence guard; it survives every
	// draft reset.
	LastProcessedMessageID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns the record used on first contact.
func New(userID, displayName string, now time.Time) *Conversation {
	return &Conversation{
		UserID:        userID,
		DisplayName:   displayName,
		State:         StateMenu,
		AccountStatus: AccountActive,
		Categories:    core.DefaultCategories(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a copy the caller may mutate freely.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Categories = append([]string(nil), c.Categories...)
	return &cp
}

// Rename adopts the name the transport reports. An empty hint keeps the
// stored name.
func (c *Conversation) Rename(displayName string) {
	if displayName != "" && displayName != c.DisplayName {
		c.DisplayName = displayName
	}
}

// reset ends whatever form was in progress.
func (c *Conversation) reset() {
	c.State = StateMenu
	c.Draft = nil
}

func (c *Conversation) categories() []string {
	if len(c.Categories) == 0 {
		return core.DefaultCategories()
	}
	return c.Categories
}
