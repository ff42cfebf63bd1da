package extract

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/common"
)

const slipText = `Cedente
ACME SERVICOS LTDA
Agência/Código do Cedente
1234/56789-0
Espécie
R$
Nosso Número
000123456
Número do Documento
98765
CPF/CNPJ
12.345.678/0001-90
Vencimento
10/05/2024
Valor do Documento
1.234,56
(-) Desconto/Abatimento
10,00
(-) Outras Deduções
0,00
(+) Mora/Multa
2,5
(+) Outros Acréscimos
0
(=) Valor Cobrado
1.227,06
Instruções (Texto de responsabilidade do Cedente)
Não receber após o vencimento.
Multa de 2% após o vencimento.
Sacado
JOAO DA SILVA
Endereço: Rua das Flores, 100
Bairro, CEP: 01234-567
Autenticação mecânica
ABC123`

const invoiceText = `NFe No 12345 Série 1
Data de Emissão 01/02/2024 10:30:00
Modelo 55 - NF-E EMITIDA EM SUBSTITUIÇÃO AO MODELO 1 OU 1A
Natureza da Operação
VENDA DE MERCADORIA
Evento Mais Recente Autorização de Uso
Data/Hora Evento Mais Recente 01/02/2024 10:31:00
Chave de Acesso 3524 0112 3456 7800 0190 5500 1000 0123 4510 0012 3456
Dados do Emitente
CPF/CNPJ 12345678000190
Razão Social ACME COMERCIO LTDA
UF SP
Município São Paulo
Dados do Destinatário
CNPJ 98765432000110
Nome CLIENTE EXEMPLO SA
UF RJ
Indicador IE 9 - Não Contribuinte
Destino da Operação 2 - Interestadual
Consumidor Final 1 - Sim
Presença do Comprador 1 - Operação presencial
Valor Nota Fiscal 1.500,00
Nota Fiscal gerada automaticamente`

const taxText = `Nome do Contribuinte: MARIA SOUZA
CPF: 123.456.789-00
Período: 01/01/2023 - 31/12/2023

Receitas
15/01/2023 Salário Empresa X 5.000,00
20/03/2023 Aluguel recebido 1.200,00

Despesas
10/02/2023 Plano de saúde 800,00

Resumo
Total de Receitas: R$ 6.200,00
Total de Despesas: R$ 800,00
Imposto a Pagar: R$ 1.234,56`

func TestPaymentSlipStrategy(t *testing.T) {
	got := PaymentSlipStrategy{}.ExtractFields(slipText)
	want := PaymentSlipFields{
		Cedente: SlipPayee{Nome: "ACME SERVICOS LTDA", AgenciaCodigo: "1234/56789-0", Especie: "R$"},
		Documento: SlipDocument{
			NossoNumero:     "000123456",
			NumeroDocumento: "98765",
			CPFCNPJ:         "12.345.678/0001-90",
			Vencimento:      "10/05/2024",
			ValorDocumento:  "1234.56",
		},
		Ajustes: SlipAdjustments{
			Desconto:         "10.00",
			OutrasDeducoes:   "0.00",
			MoraMulta:        "2.50",
			OutrosAcrescimos: "0.00",
			ValorCobrado:     "1227.06",
		},
		Sacado:       SlipPayer{Nome: "JOAO DA SILVA", Endereco: "Rua das Flores, 100", BairroCEP: "01234-567"},
		Instrucoes:   "Não receber após o vencimento.\nMulta de 2% após o vencimento.",
		Autenticacao: "ABC123",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractFields mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestInvoiceStrategy(t *testing.T) {
	got := InvoiceStrategy{}.ExtractFields(invoiceText)
	want := InvoiceFields{
		Dados: InvoiceData{
			Numero:         "12345",
			Serie:          "1",
			DataEmissao:    "01/02/2024 10:30:00",
			Modelo:         "55 - NF-E EMITIDA EM SUBSTITUIÇÃO AO MODELO 1 OU 1A",
			Natureza:       "VENDA DE MERCADORIA",
			EventoRecente:  "Autorização de Uso",
			DataHoraEvento: "01/02/2024 10:31:00",
			ChaveDeAcesso:  "35240112345678000190550010000123451000123456",
		},
		Emitente: InvoiceIssuer{CPFCNPJ: "12345678000190", RazaoSocial: "ACME COMERCIO LTDA", UF: "SP", Municipio: "São Paulo"},
		Destinatario: InvoiceRecipient{
			CNPJ:              "98765432000110",
			Nome:              "CLIENTE EXEMPLO SA",
			UF:                "RJ",
			IndicadorIE:       "9 - Não Contribuinte",
			DestinoOperacao:   "2 - Interestadual",
			ConsumidorFinal:   "1 - Sim",
			PresencaComprador: "1 - Operação presencial",
		},
		Total: InvoiceTotal{Valor: "1500.00"},
		Nota:  "Nota Fiscal gerada automaticamente",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractFields mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestInvoiceMinimalText(t *testing.T) {
	got := InvoiceStrategy{}.ExtractFields("NFe No 12345\nSérie 1").(InvoiceFields)
	for _, f := range got.Flatten() {
		want := ""
		switch f.Name {
		case "Numero da Nota Fiscal":
			want = "12345"
		case "Serie":
			want = "1"
		}
		if f.Value != want {
			t.Errorf("%s/%s = %q, want %q", f.Group, f.Name, f.Value, want)
		}
	}

	m, err := AsMap(got)
	if err != nil {
		t.Fatal(err)
	}
	dados, ok := m["Dados da Nota Fiscal"].(map[string]any)
	if !ok {
		t.Fatalf("missing group: %v", m)
	}
	if dados["Numero da Nota Fiscal"] != "12345" || dados["Serie"] != "1" {
		t.Errorf("unexpected group: %v", dados)
	}
	if v, ok := dados["Chave de Acesso"]; !ok || v != "" {
		t.Errorf("Chave de Acesso should be present and empty, got %v (present=%v)", v, ok)
	}
}

func TestInvoiceAccessKeyLength(t *testing.T) {
	got := InvoiceStrategy{}.ExtractFields("Chave de Acesso 1234 5678").(InvoiceFields)
	if got.Dados.ChaveDeAcesso != "" {
		t.Errorf("short key accepted: %q", got.Dados.ChaveDeAcesso)
	}
}

func TestInvoicePartiesOnOneLine(t *testing.T) {
	raw := "NFe No 777 Série 2\n" +
		"Dados do Emitente CPF/CNPJ 11222333000144 Razão Social FORNECEDOR SA UF SP Município SAO PAULO " +
		"Dados do Destinatário CNPJ 55666777000188 Nome CLIENTE UM LTDA UF RJ\n" +
		"Valor Nota Fiscal 10,00"

	issuer, recipient := invoiceParties(raw)
	if strings.Contains(issuer, "Dados do") || strings.Contains(issuer, "CLIENTE") {
		t.Errorf("issuer scope leaks into the recipient heading: %q", issuer)
	}
	if !strings.HasPrefix(strings.TrimSpace(recipient), "CNPJ 55666777000188") {
		t.Errorf("recipient scope = %q", recipient)
	}

	got := InvoiceStrategy{}.ExtractFields(raw).(InvoiceFields)
	wantIssuer := InvoiceIssuer{CPFCNPJ: "11222333000144", RazaoSocial: "FORNECEDOR SA", UF: "SP", Municipio: "SAO PAULO"}
	if got.Emitente != wantIssuer {
		t.Errorf("Emitente = %+v, want %+v", got.Emitente, wantIssuer)
	}
	if got.Destinatario.Nome != "CLIENTE UM LTDA" || got.Destinatario.UF != "RJ" || got.Destinatario.CNPJ != "55666777000188" {
		t.Errorf("Destinatario = %+v", got.Destinatario)
	}
	if got.Total.Valor != "10.00" {
		t.Errorf("Valor = %q", got.Total.Valor)
	}
}

func TestPaymentSlipAddressOnOneLine(t *testing.T) {
	raw := "Sacado\nJOAO DA SILVA\nEndereço: RUA A 10 Bairro, CEP: 01234-567\nAutenticação mecânica\nX1"
	got := PaymentSlipStrategy{}.ExtractFields(raw).(PaymentSlipFields)
	want := SlipPayer{Nome: "JOAO DA SILVA", Endereco: "RUA A 10", BairroCEP: "01234-567"}
	if got.Sacado != want {
		t.Errorf("Sacado = %+v, want %+v", got.Sacado, want)
	}
}

func TestTaxStatementStrategy(t *testing.T) {
	got := TaxStatementStrategy{}.ExtractFields(taxText)
	want := TaxStatementFields{
		Contribuinte: Taxpayer{Nome: "MARIA SOUZA", CPF: "123.456.789-00"},
		Periodo:      TaxPeriod{Inicio: "01/01/2023", Fim: "31/12/2023"},
		Receitas: []TaxEntry{
			{Data: "15/01/2023", Descricao: "Salário Empresa X", Valor: "5.000,00"},
			{Data: "20/03/2023", Descricao: "Aluguel recebido", Valor: "1.200,00"},
		},
		Despesas: []TaxEntry{
			{Data: "10/02/2023", Descricao: "Plano de saúde", Valor: "800,00"},
		},
		Resumo: TaxSummary{TotalReceitas: "6200.00", TotalDespesas: "800.00", ImpostoPagar: "1234.56"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractFields mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestTaxStatementEmptyTables(t *testing.T) {
	got := TaxStatementStrategy{}.ExtractFields("").(TaxStatementFields)
	if got.Receitas == nil || got.Despesas == nil {
		t.Fatal("tables must be empty slices, not nil")
	}
	if len(got.Receitas) != 0 || len(got.Despesas) != 0 {
		t.Errorf("unexpected rows: %+v", got)
	}
}

func TestExtractIsPure(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	inputs := map[constants.Label]string{
		constants.PaymentSlip:  slipText,
		constants.Invoice:      invoiceText,
		constants.TaxStatement: taxText,
	}
	for label, text := range inputs {
		a, err := d.Extract(label, text)
		if err != nil {
			t.Fatal(err)
		}
		b, err := d.Extract(label, text)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: two calls disagree", label)
		}
	}
}

func TestRulesAreIndependent(t *testing.T) {
	full := InvoiceStrategy{}.ExtractFields(invoiceText).(InvoiceFields)
	without := InvoiceStrategy{}.ExtractFields(strings.Replace(invoiceText, "NFe No 12345 Série 1\n", "", 1)).(InvoiceFields)

	if without.Dados.Numero != "" || without.Dados.Serie != "" {
		t.Fatalf("removed fields still extracted: %+v", without.Dados)
	}
	without.Dados.Numero, without.Dados.Serie = full.Dados.Numero, full.Dados.Serie
	if !reflect.DeepEqual(full, without) {
		t.Errorf("removing one rule's input changed other fields\nfull: %+v\nwithout: %+v", full, without)
	}
}

func TestDispatcherUnknownLabel(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range []constants.Label{constants.Unknown, "RECEIPT"} {
		if _, err := d.Extract(l, "x"); !errors.Is(err, common.ErrUnknownDocumentType) {
			t.Errorf("Extract(%s) = %v, want ErrUnknownDocumentType", l, err)
		}
	}
}

type strayFields struct {
	Extra string `json:"Extra"`
}

func (strayFields) Label() constants.Label { return constants.Invoice }
func (strayFields) Flatten() []Field       { return nil }

func TestDispatcherValidate(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"", slipText, invoiceText, taxText} {
		for _, l := range constants.AllLabels {
			f, err := d.Extract(l, text)
			if err != nil {
				t.Fatal(err)
			}
			if err := d.Validate(f); err != nil {
				t.Errorf("%s fields failed validation: %v", l, err)
			}
		}
	}
	if err := d.Validate(strayFields{}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("expected ErrValidation for a foreign shape, got %v", err)
	}
}
