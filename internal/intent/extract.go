package intent

import (
	"regexp"
	"strconv"

	"poupazap/internal/core"
)

// numberPattern matches either a dot grouped amount (1.234,56) or a plain
// number with an optional one or two digit fraction (50,90 / 12.5).
const numberPattern = `\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?`

// AmountMatch is an amount found inside a longer sentence.
type AmountMatch struct {
	Amount core.Money
	// Span is the exact substring consumed, so callers can cut it out.
	Span string
}

type amountMatcher func(text string) (AmountMatch, bool)

var (
	// "20 50 centavos", "20 reais 50 centavos"
	wholeAndCentsRe = regexp.MustCompile(`\b(\d+)\s+(?:(?:r\$|reais|real|brl)\s*)?(\d{1,2})\s*centavos\b`)
	// "20 reais e 50 centavos", "20 e 5 centavos"
	joinedCentsRe = regexp.MustCompile(`\b(\d+)\s*(?:(?:reais|real)\s*)?e\s*(\d{1,2})\s*centavos\b`)
	// "50,90 reais", "20 r$", "r$ 1.234,56"
	currencyMarkedRe = regexp.MustCompile(`\b(` + numberPattern + `)\s*(?:r\$|(?:reais|real|brl)\b)|\br\$\s*(` + numberPattern + `)\b`)

	amountMatchers = []amountMatcher{
		matchWholeAndCents(wholeAndCentsRe),
		matchWholeAndCents(joinedCentsRe),
		matchCurrencyMarked,
	}
)

// ExtractAmount finds the first amount expression in normalized text. The
// phrasings are tried in priority order and the first hit wins.
func ExtractAmount(text string) (AmountMatch, bool) {
	for _, m := range amountMatchers {
		if got, ok := m(text); ok {
			return got, true
		}
	}
	return AmountMatch{}, false
}

func matchWholeAndCents(re *regexp.Regexp) amountMatcher {
	return func(text string) (AmountMatch, bool) {
		sub := re.FindStringSubmatch(text)
		if sub == nil {
			return AmountMatch{}, false
		}
		reais, err := strconv.ParseInt(sub[1], 10, 64)
		if err != nil || reais > core.MaxCents/100 {
			return AmountMatch{}, false
		}
		// a single digit means 0X cents
		cents, err := strconv.ParseInt(sub[2], 10, 64)
		if err != nil {
			return AmountMatch{}, false
		}
		return AmountMatch{Amount: core.Money{Cents: reais*100 + cents}, Span: sub[0]}, true
	}
}

func matchCurrencyMarked(text string) (AmountMatch, bool) {
	sub := currencyMarkedRe.FindStringSubmatch(text)
	if sub == nil {
		return AmountMatch{}, false
	}
	token := sub[1]
	if token == "" {
		token = sub[2]
	}
	d, err := core.ParseCurrency(token)
	if err != nil {
		return AmountMatch{}, false
	}
	return AmountMatch{Amount: core.MoneyFromDecimal(d), Span: sub[0]}, true
}
