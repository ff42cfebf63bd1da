package extract

import (
	"github.com/joseph-ayodele/docclass/constants"
)

type SlipPayee struct {
	Nome          string `json:"Nome"`
	AgenciaCodigo string `json:"Agência/Código"`
	Especie       string `json:"Espécie"`
}

type SlipDocument struct {
	NossoNumero     string `json:"Nosso Número"`
	NumeroDocumento string `json:"Número do Documento"`
	CPFCNPJ         string `json:"CPF/CNPJ"`
	Vencimento      string `json:"Vencimento"`
	ValorDocumento  string `json:"Valor do Documento"`
}

type SlipAdjustments struct {
	Desconto         string `json:"Desconto/Abatimento"`
	OutrasDeducoes   string `json:"Outras Deduções"`
	MoraMulta        string `json:"Mora/Multa"`
	OutrosAcrescimos string `json:"Outros Acréscimos"`
	ValorCobrado     string `json:"Valor Cobrado"`
}

type SlipPayer struct {
	Nome      string `json:"Nome"`
	Endereco  string `json:"Endereço"`
	BairroCEP string `json:"Bairro e CEP"`
}

// PaymentSlipFields are the fields of a boleto.
type PaymentSlipFields struct {
	Cedente      SlipPayee       `json:"Cedente"`
	Documento    SlipDocument    `json:"Documento"`
	Ajustes      SlipAdjustments `json:"Descontos e Acréscimos"`
	Sacado       SlipPayer       `json:"Sacado"`
	Instrucoes   string          `json:"Instruções"`
	Autenticacao string          `json:"Autenticação Mecânica"`
}

func (PaymentSlipFields) Label() constants.Label { return constants.PaymentSlip }

func (f PaymentSlipFields) Flatten() []Field {
	return []Field{
		{"Cedente", "Nome", f.Cedente.Nome},
		{"Cedente", "Agência/Código", f.Cedente.AgenciaCodigo},
		{"Cedente", "Espécie", f.Cedente.Especie},
		{"Documento", "Nosso Número", f.Documento.NossoNumero},
		{"Documento", "Número do Documento", f.Documento.NumeroDocumento},
		{"Documento", "CPF/CNPJ", f.Documento.CPFCNPJ},
		{"Documento", "Vencimento", f.Documento.Vencimento},
		{"Documento", "Valor do Documento", f.Documento.ValorDocumento},
		{"Descontos e Acréscimos", "Desconto/Abatimento", f.Ajustes.Desconto},
		{"Descontos e Acréscimos", "Outras Deduções", f.Ajustes.OutrasDeducoes},
		{"Descontos e Acréscimos", "Mora/Multa", f.Ajustes.MoraMulta},
		{"Descontos e Acréscimos", "Outros Acréscimos", f.Ajustes.OutrosAcrescimos},
		{"Descontos e Acréscimos", "Valor Cobrado", f.Ajustes.ValorCobrado},
		{"Sacado", "Nome", f.Sacado.Nome},
		{"Sacado", "Endereço", f.Sacado.Endereco},
		{"Sacado", "Bairro e CEP", f.Sacado.BairroCEP},
		{"", "Instruções", f.Instrucoes},
		{"", "Autenticação Mecânica", f.Autenticacao},
	}
}

var slipLabels = []string{
	"Cedente", "Agência/Código do Cedente", "Espécie", "Nosso Número", "Número do Documento",
	"CPF/CNPJ", "Vencimento", "Valor do Documento", "(-) Desconto/Abatimento",
	"(-) Outras Deduções", "(+) Mora/Multa", "(+) Outros Acréscimos", "(=) Valor Cobrado",
	"Sacado", "Endereço:", "Bairro, CEP:", "Instruções", "Autenticação mecânica",
}

var (
	slipPayeeName     = newRule(`(?s)Cedente\n(.*?)\nAgência/Código`)
	slipPayeeCode     = newRule(`Agência/Código do Cedente\n([\d /-]+)`)
	slipKind          = newRule(`Espécie\n([^\n]*)`)
	slipOurNumber     = newRule(`Nosso Número\n([\d/.-]+)`)
	slipDocNumber     = newRule(`Número do Documento\n([\d/.-]+)`)
	slipTaxID         = newRule(`CPF/CNPJ\n([\d./-]+)`)
	slipDueDate       = newRule(`Vencimento\n([\d/]+)`)
	slipFaceValue     = newRule(`Valor do Documento\n([\d,.]+)`)
	slipDiscount      = newRule(`\(-\) Desconto/Abatimento\n([\d,.]+)`)
	slipDeductions    = newRule(`\(-\) Outras Deduções\n([\d,.]+)`)
	slipPenalty       = newRule(`\(\+\) Mora/Multa\n([\d,.]+)`)
	slipAdditions     = newRule(`\(\+\) Outros Acréscimos\n([\d,.]+)`)
	slipCharged       = newRule(`\(=\) Valor Cobrado\n([\d,.]+)`)
	slipPayerName     = newRule(`(?s)Sacado\n(.*?)\nAutenticação mecânica`)
	slipPayerAddress  = newRule(`Endereço:[ \t]*([^\n]*)`)
	slipPayerZip      = newRule(`Bairro, CEP:[ \t]*([\d.-]+)`)
	slipInstructions  = newRule(`(?s)Instruções \(Texto de responsabilidade do Cedente\)\n(.*?)(?:\nSacado|$)`)
	slipAuthenticated = newRule(`Autenticação mecânica\n([^\n]*)`)
)

type PaymentSlipStrategy struct{}

func (PaymentSlipStrategy) Label() constants.Label { return constants.PaymentSlip }

func (PaymentSlipStrategy) ExtractFields(raw string) Fields {
	find := func(r rule) string { return r.find(raw, slipLabels) }
	money := func(r rule) string { return NormalizeDecimal(find(r)) }

	return PaymentSlipFields{
		Cedente: SlipPayee{
			Nome:          find(slipPayeeName),
			AgenciaCodigo: find(slipPayeeCode),
			Especie:       find(slipKind),
		},
		Documento: SlipDocument{
			NossoNumero:     find(slipOurNumber),
			NumeroDocumento: find(slipDocNumber),
			CPFCNPJ:         find(slipTaxID),
			Vencimento:      find(slipDueDate),
			ValorDocumento:  money(slipFaceValue),
		},
		Ajustes: SlipAdjustments{
			Desconto:         money(slipDiscount),
			OutrasDeducoes:   money(slipDeductions),
			MoraMulta:        money(slipPenalty),
			OutrosAcrescimos: money(slipAdditions),
			ValorCobrado:     money(slipCharged),
		},
		Sacado: SlipPayer{
			Nome:      find(slipPayerName),
			Endereco:  find(slipPayerAddress),
			BairroCEP: find(slipPayerZip),
		},
		Instrucoes:   find(slipInstructions),
		Autenticacao: find(slipAuthenticated),
	}
}
