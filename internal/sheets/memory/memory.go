package memory

import (
	"context"
	"fmt"
	"sync"

	"poupazap/internal/core"
	ports "poupazap/internal/sheets"
)

// Exporter keeps exported rows in memory. It stands in for the
// spreadsheet in local runs and tests.
type Exporter struct {
	mu   sync.Mutex
	rows [][]any
	err  error
}

var _ ports.TransactionWriter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (e *Exporter) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.rows = append(e.rows, ports.Row(t))
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// FailWith makes later appends return err until called with nil.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Rows returns a copy of what was exported so far.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]any, len(e.rows))
	copy(out, e.rows)
	return out
}
