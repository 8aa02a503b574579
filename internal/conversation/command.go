package conversation

import "poupazap/internal/core"

// Command is a top-level menu action.
type Command string

const (
	CmdMenu               Command = "menu"
	CmdAddExpense         Command = "add_expense"
	CmdAddIncome          Command = "add_income"
	CmdViewBalance        Command = "view_balance"
	CmdExpensesByCategory Command = "expenses_by_category"
	CmdGoals              Command = "goals"
	CmdAddGoal            Command = "add_goal"
	CmdCreditCards        Command = "credit_cards"
	CmdScheduledExpenses  Command = "scheduled_expenses"
	CmdHelp               Command = "help"
	CmdExit               Command = "exit"
)

// wordCommands are recognized in every state. Single words that are also
// plausible form answers ("receita", "gastos") are left out.
var wordCommands = map[string]Command{
	"menu":     CmdMenu,
	"inicio":   CmdMenu,
	"voltar":   CmdMenu,
	"cancelar": CmdMenu,

	"adicionar despesa": CmdAddExpense,
	"nova despesa":      CmdAddExpense,
	"lancar despesa":    CmdAddExpense,

	"adicionar receita": CmdAddIncome,
	"nova receita":      CmdAddIncome,
	"lancar receita":    CmdAddIncome,

	"balanco":        CmdViewBalance,
	"balanco do mes": CmdViewBalance,
	"saldo":          CmdViewBalance,
	"resumo":         CmdViewBalance,
	"resumo mensal":  CmdViewBalance,
	"extrato":        CmdViewBalance,

	"despesas por categoria": CmdExpensesByCategory,
	"gastos por categoria":   CmdExpensesByCategory,
	"relatorio":              CmdExpensesByCategory,

	"metas":             CmdGoals,
	"metas de poupanca": CmdGoals,
	"minhas metas":      CmdGoals,
	"nova meta":         CmdAddGoal,
	"adicionar meta":    CmdAddGoal,

	"cartoes":            CmdCreditCards,
	"cartoes de credito": CmdCreditCards,
	"meus cartoes":       CmdCreditCards,

	"despesas agendadas": CmdScheduledExpenses,
	"agendadas":          CmdScheduledExpenses,

	"ajuda": CmdHelp,
	"help":  CmdHelp,

	"sair":  CmdExit,
	"tchau": CmdExit,
}

// menuShortcuts follow the numbering of the main menu. They only apply in
// open states, otherwise "2" typed as an amount would leave the form.
var menuShortcuts = map[string]Command{
	"1": CmdAddExpense,
	"2": CmdAddIncome,
	"3": CmdViewBalance,
	"4": CmdExpensesByCategory,
	"5": CmdGoals,
	"6": CmdCreditCards,
	"7": CmdScheduledExpenses,
	"8": CmdHelp,
	"9": CmdExit,
}

// ParseCommand maps user text to a command. open tells whether the numeric
// menu shortcuts are in effect.
func ParseCommand(text string, open bool) (Command, bool) {
	key := core.Normalize(core.TrimPunctuation(text))
	if cmd, ok := wordCommands[key]; ok {
		return cmd, true
	}
	if !open {
		return "", false
	}
	if len(key) == 2 && key[0] == '0' {
		key = key[1:]
	}
	cmd, ok := menuShortcuts[key]
	return cmd, ok
}
