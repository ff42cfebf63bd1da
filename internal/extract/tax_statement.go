package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docclass/constants"
)

type Taxpayer struct {
	Nome string `json:"Nome"`
	CPF  string `json:"CPF"`
}

type TaxPeriod struct {
	Inicio string `json:"Início"`
	Fim    string `json:"Fim"`
}

// TaxEntry is one verbatim row of the income or expense table.
type TaxEntry struct {
	Data      string `json:"Data"`
	Descricao string `json:"Descrição"`
	Valor     string `json:"Valor"`
}

type TaxSummary struct {
	TotalReceitas string `json:"Total de Receitas"`
	TotalDespesas string `json:"Total de Despesas"`
	ImpostoPagar  string `json:"Imposto a Pagar"`
}

// TaxStatementFields are the fields of an income tax statement.
type TaxStatementFields struct {
	Contribuinte Taxpayer   `json:"Contribuinte"`
	Periodo      TaxPeriod  `json:"Período"`
	Receitas     []TaxEntry `json:"Receitas"`
	Despesas     []TaxEntry `json:"Despesas"`
	Resumo       TaxSummary `json:"Resumo"`
}

func (TaxStatementFields) Label() constants.Label { return constants.TaxStatement }

// Flatten renders each table as one value, one tab-separated row per line.
func (f TaxStatementFields) Flatten() []Field {
	return []Field{
		{"Contribuinte", "Nome", f.Contribuinte.Nome},
		{"Contribuinte", "CPF", f.Contribuinte.CPF},
		{"Período", "Início", f.Periodo.Inicio},
		{"Período", "Fim", f.Periodo.Fim},
		{"", "Receitas", joinEntries(f.Receitas)},
		{"", "Despesas", joinEntries(f.Despesas)},
		{"Resumo", "Total de Receitas", f.Resumo.TotalReceitas},
		{"Resumo", "Total de Despesas", f.Resumo.TotalDespesas},
		{"Resumo", "Imposto a Pagar", f.Resumo.ImpostoPagar},
	}
}

func joinEntries(rows []TaxEntry) string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = r.Data + "\t" + r.Descricao + "\t" + r.Valor
	}
	return strings.Join(lines, "\n")
}

var taxLabels = []string{
	"Nome do Contribuinte:", "CPF:", "Período:", "Receitas", "Despesas", "Resumo",
	"Total de Receitas:", "Total de Despesas:", "Imposto a Pagar:",
}

var (
	taxName      = newRule(`Nome do Contribuinte:[ \t]*([^\n]*)`)
	taxCPF       = newRule(`CPF:\s*([\d.-]+)`)
	taxPeriod    = newRule(`Período:[ \t]*([^\n]*)`)
	taxIncome    = newRule(`Total de Receitas:\s*(?:R\$)?\s*([\d,.]+)`)
	taxExpenses  = newRule(`Total de Despesas:\s*(?:R\$)?\s*([\d,.]+)`)
	taxDue       = newRule(`Imposto a Pagar:\s*(?:R\$)?\s*([\d,.]+)`)
	taxDate      = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	taxRow       = regexp.MustCompile(`(?m)^[ \t]*(\d{2}/\d{2}/\d{4})[ \t]+(.*?)[ \t]+((?:R\$[ \t]*)?-?[\d.,]*\d)[ \t]*$`)
	incomeStart  = regexp.MustCompile(`(?m)^[ \t]*Receitas\b`)
	expenseStart = regexp.MustCompile(`(?m)^[ \t]*Despesas\b`)
	summaryStart = regexp.MustCompile(`(?m)^[ \t]*(?:Resumo|Total de Receitas|Total de Despesas|Imposto a Pagar)\b`)
)

type TaxStatementStrategy struct{}

func (TaxStatementStrategy) Label() constants.Label { return constants.TaxStatement }

func (TaxStatementStrategy) ExtractFields(raw string) Fields {
	find := func(r rule) string { return r.find(raw, taxLabels) }

	var period TaxPeriod
	if dates := taxDate.FindAllString(find(taxPeriod), 2); len(dates) > 0 {
		period.Inicio = dates[0]
		if len(dates) > 1 {
			period.Fim = dates[1]
		}
	}

	return TaxStatementFields{
		Contribuinte: Taxpayer{
			Nome: find(taxName),
			CPF:  find(taxCPF),
		},
		Periodo:  period,
		Receitas: entries(raw, incomeStart, expenseStart, summaryStart),
		Despesas: entries(raw, expenseStart, incomeStart, summaryStart),
		Resumo: TaxSummary{
			TotalReceitas: NormalizeDecimal(find(taxIncome)),
			TotalDespesas: NormalizeDecimal(find(taxExpenses)),
			ImpostoPagar:  NormalizeDecimal(find(taxDue)),
		},
	}
}

// entries collects the dated rows of one table section. Never nil.
func entries(raw string, start *regexp.Regexp, ends ...*regexp.Regexp) []TaxEntry {
	rows := []TaxEntry{}
	body, ok := section(raw, start, ends...)
	if !ok {
		return rows
	}
	for _, m := range taxRow.FindAllStringSubmatch(body, -1) {
		rows = append(rows, TaxEntry{
			Data:      m[1],
			Descricao: strings.TrimSpace(m[2]),
			Valor:     strings.TrimSpace(m[3]),
		})
	}
	return rows
}
