package sheets

import (
	"context"

	"poupazap/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends one ledger row to the user's spreadsheet
	// and returns a reference to where it landed.
	TransactionWriter interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)

// Header is the column layout every exporter writes, in order.
var Header = []string{"Data", "Usuário", "Tipo", "Descrição", "Categoria", "Valor", "Voz", "ID"}

// Row renders t in Header order. Amounts stay numeric so sheet formulas
// can sum them.
func Row(t core.Transaction) []any {
	voice := "não"
	if t.IsVoice {
		voice = "sim"
	}
	kind := "Despesa"
	if t.Kind == core.Income {
		kind = "Receita"
	}
	return []any{
		t.Date.Format("02/01/2006"),
		t.UserID,
		kind,
		t.Description,
		t.Category,
		t.Amount.Decimal().InexactFloat64(),
		voice,
		t.ID,
	}
}
