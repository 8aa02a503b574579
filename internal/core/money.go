// Package core provides money parsing and handling utilities.
//
// Amounts follow Brazilian conventions (dot groups thousands, comma marks
// cents) while tolerating machine formatted input where the dot is the
// decimal point. Values are kept in integer cents once parsed.
package core

import (
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	currencyWords = []string{"r$", "reais", "real"}

	// a dot followed by one or two digits and then a non digit (or the end)
	// is a decimal point
	centsRun      = regexp.MustCompile(`^\d{1,2}(?:\D|$)`)
	leadingNumber = regexp.MustCompile(`^\d+(?:\.\d+)?`)

	brl = money.NewFormatter(2, ",", ".", "R$", "$ 1")

	maxAmount = decimal.New(MaxCents, -2)
)

// ParseCurrency converts a free text amount to a non-negative decimal.
//
// Examples:
//
//	ParseCurrency("1.234,56")   -> 1234.56
//	ParseCurrency("1234.56")    -> 1234.56
//	ParseCurrency("R$ 50,90")   -> 50.90
//	ParseCurrency("1.234")      -> 1234
//	ParseCurrency("20 reais")   -> 20
//
// Returns ErrInvalidAmount when no number can be read or the value is
// above MaxCents.
func ParseCurrency(s string) (decimal.Decimal, error) {
	cleaned := Normalize(s)
	for _, w := range currencyWords {
		cleaned = strings.Replace(cleaned, w, "", 1)
	}
	cleaned = strings.TrimSpace(cleaned)
	cleaned = resolveDots(cleaned)
	cleaned = strings.TrimSpace(strings.Replace(cleaned, ",", ".", 1))

	if parts := strings.Split(cleaned, "."); len(parts) > 1 {
		last := parts[len(parts)-1]
		head := strings.Join(parts[:len(parts)-1], "")
		if len(last) == 1 || len(last) == 2 {
			cleaned = head + "." + last
		} else {
			cleaned = head + last
		}
	}

	num := leadingNumber.FindString(cleaned)
	if num == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(num)
	if err != nil || d.GreaterThan(maxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseMoney parses a strictly positive amount and rounds it to cents.
func ParseMoney(s string) (Money, error) {
	d, err := ParseCurrency(s)
	if err != nil {
		return Money{}, err
	}
	m := MoneyFromDecimal(d)
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func resolveDots(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			b.WriteByte(s[i])
			continue
		}
		if keepDot(s[i+1:]) {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func keepDot(after string) bool {
	switch {
	case centsRun.MatchString(after):
		return true
	case strings.Contains(after, ","):
		return false
	case len(after) > 2 && allDigits(after):
		return false
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// MoneyFromDecimal rounds half away from zero to whole cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// Decimal returns the amount in reais.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Split divides the amount in n equal parts rounded to cents.
func (m Money) Split(n int) Money {
	if n <= 0 {
		return Money{}
	}
	return MoneyFromDecimal(m.Decimal().Div(decimal.NewFromInt(int64(n))))
}

// String formats the amount the way pt-BR users expect: R$ 1.234,56
func (m Money) String() string {
	return brl.Format(m.Cents)
}
