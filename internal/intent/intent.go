// Package intent recognizes quick transactions and goal creation in free
// text, without menu navigation.
//
// Every parser works on text already folded by core.Normalize and is pure;
// Recognize tries them in a fixed order (expense, income, goal) so a sentence
// matching several intents always resolves to the earliest one.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"poupazap/internal/core"
)

// Intent is one of QuickExpense, QuickIncome or CreateGoal.
type Intent interface {
	Kind() string
}

type QuickExpense struct {
	Amount      core.Money
	Category    string
	Description string
	CardID      int64
}

type QuickIncome struct {
	Amount      core.Money
	Description string
}

// CreateGoal carries goal parameters. Value is zero when the sentence did
// not state one.
type CreateGoal struct {
	Name   string
	Value  core.Money
	Months int
}

func (QuickExpense) Kind() string { return "quick_expense" }
func (QuickIncome) Kind() string  { return "quick_income" }
func (CreateGoal) Kind() string   { return "create_goal" }

const (
	defaultIncomeDescription = "Receita por voz"
	defaultGoalName          = "Nova Meta"
	goalTrigger              = "criar meta"
)

var (
	expenseKeywords = newKeywordSet([]string{"gastei", "paguei", "comprei", "despesa de", "uma compra de"}, fillerWords...)
	incomeKeywords  = newKeywordSet([]string{"recebi", "ganhei", "pix de", "pagamento de", "entrou"}, fillerWords...)

	goalMonthsRe = regexp.MustCompile(`\bem\s*(\d+)\s*meses?\b`)
	goalValueRe  = regexp.MustCompile(`\b(?:valor de|de|com)\s*(?:r\$\s*)?(` + numberPattern + `)(?:\s*(?:reais|real)\b)?`)
)

// Env is what the recognizers need to know about the user.
type Env struct {
	Categories []string
	// Cards is only called when the text looks like an expense with an
	// amount.
	Cards func(ctx context.Context) ([]core.Card, error)
}

// Recognize normalizes text and returns the first matching intent, or nil.
func Recognize(ctx context.Context, text string, env Env) (Intent, error) {
	text = core.Normalize(text)
	if text == "" {
		return nil, nil
	}

	// Cards are only listed once the sentence carries an amount.
	if _, ok := ExtractAmount(text); ok && expenseKeywords.In(text) {
		var cards []core.Card
		if env.Cards != nil {
			var err error
			if cards, err = env.Cards(ctx); err != nil {
				return nil, fmt.Errorf("list cards: %w", err)
			}
		}
		if e, ok := ParseQuickExpense(text, cards, env.Categories); ok {
			return e, nil
		}
	}
	if i, ok := ParseQuickIncome(text); ok {
		return i, nil
	}
	if g, ok := ParseCreateGoal(text); ok {
		return g, nil
	}
	return nil, nil
}

// ParseQuickExpense reads sentences like "gastei 20 reais no mercado". A
// keyword without an amount is not a match.
func ParseQuickExpense(text string, cards []core.Card, categories []string) (QuickExpense, bool) {
	text = core.Normalize(text)
	if !expenseKeywords.In(text) {
		return QuickExpense{}, false
	}
	amount, ok := ExtractAmount(text)
	if !ok || amount.Amount.Validate() != nil {
		return QuickExpense{}, false
	}
	rest := strings.Replace(text, amount.Span, " ", 1)

	var cardID int64
	for _, c := range cards {
		re := cardMentionRe(c.Nickname)
		if re == nil {
			continue
		}
		if loc := re.FindStringIndex(rest); loc != nil {
			cardID = c.ID
			rest = rest[:loc[0]] + " " + rest[loc[1]:]
			break
		}
	}

	description := cleanRemainder(expenseKeywords.Strip(rest))

	category := ""
	for _, word := range strings.Fields(description) {
		if c, ok := core.ResolveCategory(word, categories); ok {
			category = c
			break
		}
	}
	if category == "" {
		category = core.FallbackCategory
	}
	if description == "" {
		description = category
	}

	return QuickExpense{
		Amount:      amount.Amount,
		Category:    category,
		Description: description,
		CardID:      cardID,
	}, true
}

// cardMentionRe matches "no nubank", "pelo nubank", "no cartao nubank"...
func cardMentionRe(nickname string) *regexp.Regexp {
	nick := core.Normalize(nickname)
	if nick == "" {
		return nil
	}
	return regexp.MustCompile(`\b(?:no cartao|no credito|no|pelo|com o)\s+` + regexp.QuoteMeta(nick) + `\b`)
}

// ParseQuickIncome reads sentences like "recebi 1.500 reais do freela".
func ParseQuickIncome(text string) (QuickIncome, bool) {
	text = core.Normalize(text)
	if !incomeKeywords.In(text) {
		return QuickIncome{}, false
	}
	amount, ok := ExtractAmount(text)
	if !ok || amount.Amount.Validate() != nil {
		return QuickIncome{}, false
	}
	rest := strings.Replace(text, amount.Span, " ", 1)

	description := cleanRemainder(incomeKeywords.Strip(rest))
	if description == "" {
		description = defaultIncomeDescription
	}
	return QuickIncome{Amount: amount.Amount, Description: description}, true
}

// ParseCreateGoal reads "criar meta viagem de 5000 em 10 meses". The months
// clause is mandatory, the value is optional.
func ParseCreateGoal(text string) (CreateGoal, bool) {
	text = core.Normalize(text)
	if !strings.HasPrefix(text, goalTrigger) {
		return CreateGoal{}, false
	}
	rest := strings.Replace(text, goalTrigger, " ", 1)

	// months first, so its number is never read as the value
	months := goalMonthsRe.FindStringSubmatch(rest)
	if months == nil {
		return CreateGoal{}, false
	}
	n, err := strconv.Atoi(months[1])
	if err != nil || n <= 0 {
		return CreateGoal{}, false
	}
	rest = strings.Replace(rest, months[0], " ", 1)

	var value core.Money
	if m := goalValueRe.FindStringSubmatch(rest); m != nil {
		if d, err := core.ParseCurrency(m[1]); err == nil {
			if v := core.MoneyFromDecimal(d); v.Validate() == nil {
				value = v
			}
		}
		rest = strings.Replace(rest, m[0], " ", 1)
	}

	name := core.CollapseSpaces(rest)
	if name == "" {
		name = defaultGoalName
	}
	return CreateGoal{Name: name, Value: value, Months: n}, true
}
