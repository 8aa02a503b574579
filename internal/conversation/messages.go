package conversation

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"poupazap/internal/core"
)

const (
	msgMenu = "Bem-vindo ao PoupaZap! Escolha uma opção:\n\n" +
		"1. Adicionar despesa\n" +
		"2. Adicionar receita\n" +
		"3. Ver balanço do mês\n" +
		"4. Despesas por categoria\n" +
		"5. Metas de poupança\n" +
		"6. Cartões de crédito\n" +
		"7. Despesas agendadas\n" +
		"8. Ajuda\n" +
		"9. Sair\n\n" +
		"Para lançamentos rápidos, basta me dizer o que você fez, por exemplo:\n" +
		"\"Gastei 50 reais no mercado\"\n" +
		"\"Recebi 120 reais de um freela\""

	msgHelp = "Comandos disponíveis:\n" +
		"- 'menu': Exibe o menu principal\n" +
		"- 'adicionar despesa': Inicia o processo de adição de despesa\n" +
		"- 'adicionar receita': Inicia o processo de adição de receita\n" +
		"- 'balanço': Vê o balanço do mês\n" +
		"- 'despesas por categoria': Vê as despesas agrupadas por categoria\n" +
		"- 'metas': Acessa as metas de poupança\n" +
		"- 'nova meta': Cria uma meta de poupança\n" +
		"- 'cartões': Mostra seus cartões de crédito\n" +
		"- 'despesas agendadas': Vê suas despesas agendadas\n" +
		"- 'ajuda': Exibe este menu de ajuda\n" +
		"- 'sair': Encerra a conversa\n\n" +
		"Você também pode escrever ou falar naturalmente, por exemplo \"gastei 25,50 na farmácia\" ou \"criar meta viagem de 5000 em 10 meses\"."

	msgExit = "Até mais! Se precisar de algo, é só chamar."

	msgAskExpenseAmount    = "Qual o valor da despesa?"
	msgBadExpenseAmount    = "Valor inválido. Por favor, digite um número válido para a despesa."
	msgAskCategory         = "Em qual categoria? (Ex: Alimentação, Transporte, Moradia)"
	msgAskExpenseDesc      = "Qual a descrição da despesa? (Ex: Almoço no restaurante)"
	msgExpenseDeclined     = "Despesa não adicionada. Posso ajudar com mais alguma coisa?"
	msgAskIncomeAmount     = "Qual o valor da receita?"
	msgBadIncomeAmount     = "Valor inválido. Por favor, digite um número válido para a receita."
	msgAskIncomeDesc       = "Qual a descrição da receita? (Ex: Salário, Freelance)"
	msgIncomeDeclined      = "Receita não adicionada. Posso ajudar com mais alguma coisa?"
	msgAskGoalName         = "Qual o nome da meta? (Ex: Viagem, Reserva de emergência)"
	msgBadGoalValue        = "Valor inválido. Por favor, digite um número válido para a meta."
	msgBadGoalMonths       = "Número de meses inválido. Por favor, digite um número inteiro positivo."
	msgGoalDeclined        = "Meta não adicionada. Posso ajudar com mais alguma coisa?"
	msgNoExpensesThisMonth = "Nenhuma despesa registrada este mês."
	msgNoScheduled         = "Você não tem despesas agendadas."
	msgNoGoals             = "Você ainda não tem metas de poupança. Digite 'nova meta' ou diga, por exemplo, \"criar meta viagem de 5000 em 10 meses\"."

	msgUnknownCommand = "Comando não reconhecido. Por favor, digite 'menu' para ver as opções."
	msgNotUnderstood  = "Desculpe, não entendi. Digite 'menu' para ver as opções."

	// Replies produced outside the state machine.
	MsgListening       = "🎙️ Ouvindo..."
	MsgAudioNotHeard   = "😕 Desculpe, não consegui entender o áudio."
	MsgAudioFailed     = "😕 Tive um problema ao processar seu áudio."
	MsgInternalError   = "😕 Ops! Ocorreu um erro interno."
	defaultPaymentLink = "https://link.depagamento.com"
)

// Onboarding is sent once, on a user's first message.
func Onboarding(paymentLink string) string {
	if paymentLink == "" {
		paymentLink = defaultPaymentLink
	}
	return "👋 Bem-vindo(a) ao PoupaZap!\n\n" +
		"Sou seu assistente financeiro pessoal para te ajudar a controlar gastos, receitas e alcançar suas metas, tudo pelo chat! 💸🎯\n\n" +
		"*Recursos:*\n" +
		"* Lançamentos ilimitados de receitas e despesas!\n" +
		"* Criação de Metas Financeiras 🏆\n" +
		"* Relatórios detalhados por categoria 📊\n" +
		"* Agendamento de despesas recorrentes/parceladas com lembretes automáticos! ⏰\n\n" +
		"Para ter acesso completo e transformar sua vida financeira, adquira seu acesso por um valor simbólico!\n" +
		"➡️ " + paymentLink + "\n\n" +
		"Estou ansioso para te ajudar a poupar! 🐷"
}

func expenseAdded(d ExpenseDraft) string {
	return fmt.Sprintf("Despesa de %s em %s (%s) adicionada com sucesso!", d.Amount, d.Category, d.Description)
}

func incomeAdded(d IncomeDraft) string {
	return fmt.Sprintf("Receita de %s (%s) adicionada com sucesso!", d.Amount, d.Description)
}

func confirmExpense(d ExpenseDraft) string {
	return fmt.Sprintf("🎙️ Entendi: Gastou %s em %s (%s). Correto? (Sim/Não)", d.Amount, d.Category, d.Description)
}

func confirmIncome(d IncomeDraft) string {
	return fmt.Sprintf("🎙️ Entendi: Recebeu %s (%s). Correto? (Sim/Não)", d.Amount, d.Description)
}

func confirmGoal(d GoalDraft) string {
	return fmt.Sprintf("🎙️ Meta: \"%s\" de %s em %d meses. Correto? (Sim/Não)", d.Name, d.Value, d.Months)
}

func askGoalValueFromVoice(d GoalDraft) string {
	return fmt.Sprintf("🎙️ Ok, meta \"%s\" por %d meses. Qual o valor total?", d.Name, d.Months)
}

func askGoalValue(name string) string {
	return fmt.Sprintf("Qual o valor total da meta \"%s\"?", name)
}

func askGoalMonths(value core.Money) string {
	return fmt.Sprintf("Em quantos meses você quer atingir a meta de %s?", value)
}

func goalAdded(g core.Goal) string {
	return fmt.Sprintf("Meta \"%s\" de %s em %d meses adicionada com sucesso! Guarde %s por mês.", g.Name, g.Target, g.Months, g.MonthlyTarget)
}

func invalidCategory(input string, categories []string) string {
	msg := fmt.Sprintf("Categoria inválida. Por favor, escolha uma das seguintes: %s.", strings.Join(categories, ", "))
	if s := suggestCategory(input, categories); s != "" {
		msg += fmt.Sprintf(" Você quis dizer %s?", s)
	}
	return msg
}

// suggestCategory finds the category the user most likely meant, or "".
// It only feeds the re-prompt; the answer is still rejected.
func suggestCategory(input string, categories []string) string {
	in := core.Normalize(core.TrimPunctuation(input))
	if len(in) < 3 {
		return ""
	}
	best, bestDist := "", -1
	for _, c := range categories {
		name := core.Normalize(c)
		dist := fuzzy.RankMatchNormalizedFold(in, name)
		if dist < 0 {
			dist = fuzzy.LevenshteinDistance(in, name)
			if dist > 2 {
				continue
			}
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best
}

func balanceReport(o core.MonthOverview) string {
	return fmt.Sprintf("Seu balanço do mês:\nReceitas: %s\nDespesas: %s\nSaldo: %s",
		o.Income, o.Expenses, o.Balance())
}

func categoryReport(o core.MonthOverview) string {
	rows := o.NonZeroByAmount()
	if len(rows) == 0 {
		return msgNoExpensesThisMonth
	}
	var b strings.Builder
	b.WriteString("Suas despesas por categoria este mês:\n\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s: %s\n", r.Name, r.Amount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func goalList(goals []core.Goal) string {
	if len(goals) == 0 {
		return msgNoGoals
	}
	var b strings.Builder
	b.WriteString("🏆 Suas metas de poupança:\n\n")
	for i, g := range goals {
		fmt.Fprintf(&b, "%d. %s - %s em %d meses (%s/mês)\n", i+1, g.Name, g.Target, g.Months, g.MonthlyTarget)
	}
	b.WriteString("\nPara criar uma nova meta, digite 'nova meta'.")
	return b.String()
}

func cardList(cards []core.Card) string {
	var b strings.Builder
	b.WriteString("💳 Seus cartões de crédito\n\n")
	if len(cards) == 0 {
		b.WriteString("Você ainda não cadastrou nenhum cartão.")
		return b.String()
	}
	for i, c := range cards {
		fmt.Fprintf(&b, "%d. %s (Apelido: %s", i+1, c.Name, c.Nickname)
		if c.Limit.Cents > 0 {
			fmt.Fprintf(&b, ", Limite: %s", c.Limit)
		}
		b.WriteString(")\n")
	}
	fmt.Fprintf(&b, "\nPara lançar no cartão, diga por exemplo \"gastei 50 reais no %s\".", cards[0].Nickname)
	return b.String()
}

func scheduledList(items []core.ScheduledExpense) string {
	if len(items) == 0 {
		return msgNoScheduled
	}
	var b strings.Builder
	b.WriteString("Suas despesas agendadas:\n\n")
	for i, s := range items {
		fmt.Fprintf(&b, "%d. %s - %s (%s, Vencimento: %s)\n", i+1, s.Name, s.Amount, recurrenceLabel(s), s.NextDueDate.BR())
	}
	return strings.TrimRight(b.String(), "\n")
}

func recurrenceLabel(s core.ScheduledExpense) string {
	if s.Type == core.Installment {
		return fmt.Sprintf("parcela %d/%d", s.InstallmentsPaid+1, s.TotalInstallments)
	}
	if s.RecurrenceType != "" {
		return s.RecurrenceType
	}
	return "mensal"
}
