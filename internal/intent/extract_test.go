package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCents int64
		wantSpan  string
	}{
		{
			name:      "whole and cents words",
			text:      "gastei 20 50 centavos",
			wantCents: 2050,
			wantSpan:  "20 50 centavos",
		},
		{
			name:      "currency word between whole and cents",
			text:      "paguei 20 reais 5 centavos",
			wantCents: 2005,
			wantSpan:  "20 reais 5 centavos",
		},
		{
			name:      "joined with e",
			text:      "gastei 20 reais e 50 centavos no mercado",
			wantCents: 2050,
			wantSpan:  "20 reais e 50 centavos",
		},
		{
			name:      "joined without currency word",
			text:      "3 e 9 centavos",
			wantCents: 309,
			wantSpan:  "3 e 9 centavos",
		},
		{
			name:      "comma decimal with reais",
			text:      "comprei pao 50,90 reais",
			wantCents: 5090,
			wantSpan:  "50,90 reais",
		},
		{
			name:      "currency symbol suffix",
			text:      "gastei 20 r$ no bar",
			wantCents: 2000,
			wantSpan:  "20 r$",
		},
		{
			name:      "currency symbol prefix",
			text:      "paguei r$ 1.234,56 de aluguel",
			wantCents: 123456,
			wantSpan:  "r$ 1.234,56",
		},
		{
			name:      "grouped thousands suffix",
			text:      "recebi 1.500 reais",
			wantCents: 150000,
			wantSpan:  "1.500 reais",
		},
		{
			name:      "brl suffix",
			text:      "entrou 99.9 brl",
			wantCents: 9990,
			wantSpan:  "99.9 brl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAmount(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.wantCents, got.Amount.Cents)
			assert.Equal(t, tt.wantSpan, got.Span)
		})
	}
}

func TestExtractAmount_NoMatch(t *testing.T) {
	for _, text := range []string{
		"gastei no mercado",
		"paguei 20 no mercado",
		"50 centavos",
		"",
	} {
		_, ok := ExtractAmount(text)
		assert.False(t, ok, "ExtractAmount(%q) should not match", text)
	}
}
