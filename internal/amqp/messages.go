package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"poupazap/internal/core"
)

// TransactionRecorded announces a new ledger row. It carries only the
// identifiers; consumers read the full row from the database.
type TransactionRecorded struct {
	MessageID     string    `json:"message_id"`
	TransactionID int64     `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Kind          string    `json:"kind"`
	AmountCents   int64     `json:"amount_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecorded(t core.Transaction) *TransactionRecorded {
	return &TransactionRecorded{
		MessageID:     uuid.NewString(),
		TransactionID: t.ID,
		UserID:        t.UserID,
		Kind:          string(t.Kind),
		AmountCents:   t.Amount.Cents,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedFromJSON(data []byte) (*TransactionRecorded, error) {
	var msg TransactionRecorded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
