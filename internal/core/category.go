package core

import "strings"

const (
	// FallbackCategory is used when nothing in a sentence names a category.
	FallbackCategory = "Outros"
	// IncomeCategory is stored on every income entry.
	IncomeCategory = "Receita"
)

var defaultCategories = []string{
	"Alimentação",
	"Transporte",
	"Moradia",
	"Saúde",
	"Lazer",
	"Educação",
	"Vestuário",
	"Cuidados Pessoais",
	"Pets",
	"Casa e Utilidades",
	"Impostos e Taxas",
	"Investimentos",
	"Trabalho e Escritório",
	"Presentes",
	"Outros",
}

// categorySynonyms maps normalized colloquial terms to canonical labels.
var categorySynonyms = map[string]string{
	"alimentacao": "Alimentação", "comida": "Alimentação", "mercado": "Alimentação",
	"restaurante": "Alimentação", "almoco": "Alimentação", "jantar": "Alimentação",
	"lanche": "Alimentação", "ifood": "Alimentação", "rappi": "Alimentação",
	"padaria": "Alimentação", "hortifruti": "Alimentação", "acougue": "Alimentação",
	"delivery": "Alimentação",

	"transporte": "Transporte", "uber": "Transporte", "99": "Transporte",
	"gasolina": "Transporte", "onibus": "Transporte", "metro": "Transporte",
	"passagem": "Transporte", "combustivel": "Transporte", "pedagio": "Transporte",
	"estacionamento": "Transporte", "app de transporte": "Transporte",

	"moradia": "Moradia", "aluguel": "Moradia", "condominio": "Moradia",
	"iptu": "Moradia", "agua": "Moradia", "luz": "Moradia", "energia": "Moradia",
	"internet": "Moradia", "casa": "Moradia", "manutencao": "Moradia",
	"gas": "Moradia", "diarista": "Moradia", "faxina": "Moradia",
	"conserto": "Moradia", "reforma": "Moradia",

	"saude": "Saúde", "medico": "Saúde", "remedio": "Saúde", "farmacia": "Saúde",
	"dentista": "Saúde", "plano de saude": "Saúde", "exame": "Saúde",
	"consulta": "Saúde", "terapia": "Saúde", "psicologo": "Saúde",

	"lazer": "Lazer", "cinema": "Lazer", "show": "Lazer", "bar": "Lazer",
	"passeio": "Lazer", "viagem": "Lazer", "hobby": "Lazer", "streaming": "Lazer",
	"jogo": "Lazer", "game": "Lazer", "festa": "Lazer", "balada": "Lazer",
	"barzinho": "Lazer", "assinatura": "Lazer", "spotify": "Lazer",
	"netflix": "Lazer", "disney": "Lazer", "hbo": "Lazer",

	"educacao": "Educação", "curso": "Educação", "livro": "Educação",
	"faculdade": "Educação", "escola": "Educação", "material escolar": "Educação",
	"palestra": "Educação", "workshop": "Educação",

	"vestuario": "Vestuário", "roupa": "Vestuário", "sapato": "Vestuário",
	"tenis": "Vestuário", "acessorio": "Vestuário",

	"cuidados pessoais": "Cuidados Pessoais", "salao de beleza": "Cuidados Pessoais",
	"cabelereiro": "Cuidados Pessoais", "barbeiro": "Cuidados Pessoais",
	"manicure": "Cuidados Pessoais", "pedicure": "Cuidados Pessoais",
	"cosmetico": "Cuidados Pessoais", "perfume": "Cuidados Pessoais",
	"maquiagem": "Cuidados Pessoais",

	"pets": "Pets", "petshop": "Pets", "racao": "Pets", "veterinario": "Pets",
	"banho e tosa": "Pets",

	"casa e utilidades": "Casa e Utilidades", "moveis": "Casa e Utilidades",
	"decoracao": "Casa e Utilidades", "eletrodomestico": "Casa e Utilidades",
	"utensilio": "Casa e Utilidades", "produtos de limpeza": "Casa e Utilidades",

	"impostos e taxas": "Impostos e Taxas", "imposto de renda": "Impostos e Taxas",
	"irpf": "Impostos e Taxas", "ipva": "Impostos e Taxas",
	"taxa bancaria": "Impostos e Taxas", "juros": "Impostos e Taxas",

	"investimentos": "Investimentos", "poupanca": "Investimentos",
	"acoes": "Investimentos", "cdb": "Investimentos",
	"tesouro direto": "Investimentos", "criptomoeda": "Investimentos",
	"bitcoin": "Investimentos",

	"trabalho e escritorio":  "Trabalho e Escritório",
	"material de escritorio": "Trabalho e Escritório",
	"almoco de negocios":     "Trabalho e Escritório",
	"software":               "Trabalho e Escritório",
	"coworking":              "Trabalho e Escritório",

	"presentes": "Presentes", "presente": "Presentes", "doacao": "Presentes",
	"caridade": "Presentes", "dizimo": "Presentes",

	"outros": "Outros",
}

// DefaultCategories returns the canonical category list shared by every user.
func DefaultCategories() []string {
	return append([]string(nil), defaultCategories...)
}

// CategorySynonyms returns a copy of the synonym table.
func CategorySynonyms() map[string]string {
	out := make(map[string]string, len(categorySynonyms))
	for k, v := range categorySynonyms {
		out[k] = v
	}
	return out
}

// ResolveCategory maps a token to one of categories. A canonical name wins
// over a synonym; synonyms pointing outside categories are ignored.
func ResolveCategory(token string, categories []string) (string, bool) {
	key := Normalize(strings.TrimRight(strings.TrimSpace(token), ".,!?"))
	if key == "" {
		return "", false
	}
	for _, c := range categories {
		if Normalize(c) == key {
			return c, true
		}
	}
	mapped, ok := categorySynonyms[key]
	if !ok {
		return "", false
	}
	for _, c := range categories {
		if c == mapped {
			return c, true
		}
	}
	return "", false
}
