package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docclass/constants"
)

type InvoiceData struct {
	Numero         string `json:"Numero da Nota Fiscal"`
	Serie          string `json:"Serie"`
	DataEmissao    string `json:"Data de Emissao"`
	Modelo         string `json:"Modelo"`
	Natureza       string `json:"Natureza da Operacao"`
	EventoRecente  string `json:"Evento Mais Recente"`
	DataHoraEvento string `json:"Data/Hora Evento Mais Recente"`
	ChaveDeAcesso  string `json:"Chave de Acesso"`
}

type InvoiceIssuer struct {
	CPFCNPJ     string `json:"CPF/CNPJ"`
	RazaoSocial string `json:"Razao Social"`
	UF          string `json:"UF"`
	Municipio   string `json:"Municipio"`
}

type InvoiceRecipient struct {
	CNPJ              string `json:"CNPJ"`
	Nome              string `json:"Nome"`
	UF                string `json:"UF"`
	IndicadorIE       string `json:"Indicador IE"`
	DestinoOperacao   string `json:"Destino da Operacao"`
	ConsumidorFinal   string `json:"Consumidor Final"`
	PresencaComprador string `json:"Presenca do Comprador"`
}

type InvoiceTotal struct {
	Valor string `json:"Valor"`
}

// InvoiceFields are the fields of an NF-e.
type InvoiceFields struct {
	Dados        InvoiceData      `json:"Dados da Nota Fiscal"`
	Emitente     InvoiceIssuer    `json:"Dados do Emitente"`
	Destinatario InvoiceRecipient `json:"Dados do Destinatario"`
	Total        InvoiceTotal     `json:"Valor Nota Fiscal"`
	Nota         string           `json:"Nota"`
}

func (InvoiceFields) Label() constants.Label { return constants.Invoice }

func (f InvoiceFields) Flatten() []Field {
	return []Field{
		{"Dados da Nota Fiscal", "Numero da Nota Fiscal", f.Dados.Numero},
		{"Dados da Nota Fiscal", "Serie", f.Dados.Serie},
		{"Dados da Nota Fiscal", "Data de Emissao", f.Dados.DataEmissao},
		{"Dados da Nota Fiscal", "Modelo", f.Dados.Modelo},
		{"Dados da Nota Fiscal", "Natureza da Operacao", f.Dados.Natureza},
		{"Dados da Nota Fiscal", "Evento Mais Recente", f.Dados.EventoRecente},
		{"Dados da Nota Fiscal", "Data/Hora Evento Mais Recente", f.Dados.DataHoraEvento},
		{"Dados da Nota Fiscal", "Chave de Acesso", f.Dados.ChaveDeAcesso},
		{"Dados do Emitente", "CPF/CNPJ", f.Emitente.CPFCNPJ},
		{"Dados do Emitente", "Razao Social", f.Emitente.RazaoSocial},
		{"Dados do Emitente", "UF", f.Emitente.UF},
		{"Dados do Emitente", "Municipio", f.Emitente.Municipio},
		{"Dados do Destinatario", "CNPJ", f.Destinatario.CNPJ},
		{"Dados do Destinatario", "Nome", f.Destinatario.Nome},
		{"Dados do Destinatario", "UF", f.Destinatario.UF},
		{"Dados do Destinatario", "Indicador IE", f.Destinatario.IndicadorIE},
		{"Dados do Destinatario", "Destino da Operacao", f.Destinatario.DestinoOperacao},
		{"Dados do Destinatario", "Consumidor Final", f.Destinatario.ConsumidorFinal},
		{"Dados do Destinatario", "Presenca do Comprador", f.Destinatario.PresencaComprador},
		{"Valor Nota Fiscal", "Valor", f.Total.Valor},
		{"", "Nota", f.Nota},
	}
}

const autoGeneratedNote = "Nota Fiscal gerada automaticamente"

var invoiceLabels = []string{
	"NFe No", "Série", "Data de Emissão", "Modelo", "Natureza da Operação", "Evento Mais Recente",
	"Data/Hora Evento Mais Recente", "Chave de Acesso", "Emitente", "Destinatário", "Dados do",
	"CPF/CNPJ", "CNPJ", "Razão Social", "Nome", "UF", "Município", "Indicador IE",
	"Destino da Operação", "Consumidor Final", "Presença do Comprador", "Valor Nota Fiscal",
}

var (
	issuerHeading    = regexp.MustCompile(`Emitente`)
	recipientHeading = regexp.MustCompile(`(?:Dados do\s+)?Destinat[áa]rio`)
)

var (
	invNumber       = newRule(`NFe No (\d+)`)
	invSeries       = newRule(`Série (\d+)`)
	invIssuedAt     = newRule(`Data de Emissão ([\d/ :]+)`)
	invModel        = newRule(`Modelo\s*(\d{2} - NF-E EMITIDA EM SUBSTITUIÇÃO AO MODELO \d+\s*OU \d\w?)`)
	invNature       = newRule(`Natureza da\s*Operação\s*([^\n]+\s*[^\n]*)`)
	invLastEvent    = newRule(`Evento Mais\s*Recente\s*([^\n]+)`)
	invLastEventAt  = newRule(`Data/Hora Evento Mais Recente\s+([\d/ :]+)`)
	invAccessKey    = newRule(`Chave de\s*Acesso\s*([\d \t]+)`)
	invIssuerTaxID  = newRule(`CPF/CNPJ\s+([\d./-]+)`)
	invIssuerName   = newRule(`Razão Social\s+([^\n]+)`)
	invState        = newRule(`UF\s+([A-Z]{2})\b`)
	invCity         = newRule(`Município\s+([\p{L}\d ]+)`)
	invRecipientID  = newRule(`CNPJ\s+([\d./-]+)`)
	invRecipient    = newRule(`Nome\s*([A-ZÀ-Ý][A-ZÀ-Ý\s,.&'-]*)`)
	invIEIndicator  = newRule(`Indicador IE[ \t]+([^\n]+)`)
	invDestination  = newRule(`Destino da\s*Operação\s*([\d -]+[^\n]*)`)
	invFinalBuyer   = newRule(`Consumidor Final\s+(\d+ - \p{L}+)`)
	invBuyerPresent = newRule(`Presença do\s*Comprador\s*([\d -]+[^\n]*)`)
	invTotal        = newRule(`Valor Nota Fiscal\s+([\d.,]+)`)
)

type InvoiceStrategy struct{}

func (InvoiceStrategy) Label() constants.Label { return constants.Invoice }

func (InvoiceStrategy) ExtractFields(raw string) Fields {
	issuer, recipient := invoiceParties(raw)
	in := func(text string, r rule) string { return r.find(text, invoiceLabels) }
	find := func(r rule) string { return in(raw, r) }

	nota := ""
	if strings.Contains(raw, autoGeneratedNote) {
		nota = autoGeneratedNote
	}

	return InvoiceFields{
		Dados: InvoiceData{
			Numero:         find(invNumber),
			Serie:          find(invSeries),
			DataEmissao:    find(invIssuedAt),
			Modelo:         find(invModel),
			Natureza:       find(invNature),
			EventoRecente:  find(invLastEvent),
			DataHoraEvento: find(invLastEventAt),
			ChaveDeAcesso:  accessKey(find(invAccessKey)),
		},
		Emitente: InvoiceIssuer{
			CPFCNPJ:     in(issuer, invIssuerTaxID),
			RazaoSocial: in(issuer, invIssuerName),
			UF:          in(issuer, invState),
			Municipio:   in(issuer, invCity),
		},
		Destinatario: InvoiceRecipient{
			CNPJ:              in(recipient, invRecipientID),
			Nome:              in(recipient, invRecipient),
			UF:                in(recipient, invState),
			IndicadorIE:       in(recipient, invIEIndicator),
			DestinoOperacao:   find(invDestination),
			ConsumidorFinal:   find(invFinalBuyer),
			PresencaComprador: find(invBuyerPresent),
		},
		Total: InvoiceTotal{Valor: NormalizeDecimal(find(invTotal))},
		Nota:  nota,
	}
}

// invoiceParties scopes issuer rules to the text between the Emitente heading
// and the recipient heading (including a leading "Dados do"), and recipient
// rules to the text after it.
// A missing heading widens the scope to the whole document.
func invoiceParties(raw string) (issuer, recipient string) {
	issuer, recipient = raw, raw
	r := recipientHeading.FindStringIndex(raw)
	if r != nil {
		recipient = raw[r[1]:]
	}
	if e := issuerHeading.FindStringIndex(raw); e != nil {
		end := len(raw)
		if r != nil && r[0] > e[1] {
			end = r[0]
		}
		issuer = raw[e[1]:end]
	}
	return issuer, recipient
}

// accessKey keeps the value only when it is exactly 44 digits once group spacing is removed.
func accessKey(v string) string {
	k := strings.Join(strings.Fields(v), "")
	if len(k) != 44 {
		return ""
	}
	for i := 0; i < len(k); i++ {
		if !isDigit(k[i]) {
			return ""
		}
	}
	return k
}
