package constants

import (
	"strings"
)

// Label is the document class assigned by the classifier.
type Label string

const (
	PaymentSlip  Label = "PAYMENT_SLIP"
	Invoice      Label = "INVOICE"
	TaxStatement Label = "TAX_STATEMENT"
	Unknown      Label = "UNKNOWN"
)

// AllLabels is the canonical label order used for model classes,
// confusion matrices and export sheets.
var AllLabels = []Label{
	PaymentSlip,
	Invoice,
	TaxStatement,
}

func (l Label) String() string { return string(l) }

// Valid reports whether l is one of the trainable labels.
func (l Label) Valid() bool {
	for _, known := range AllLabels {
		if l == known {
			return true
		}
	}
	return false
}

// Index returns the position of l in AllLabels, or -1.
func (l Label) Index() int {
	for i, known := range AllLabels {
		if l == known {
			return i
		}
	}
	return -1
}

func AsStringSlice() []string {
	result := make([]string, len(AllLabels))
	for i, l := range AllLabels {
		result[i] = string(l)
	}
	return result
}

// Canonicalize maps a directory name or user input to a Label.
func Canonicalize(input string) (Label, bool) {
	if input == "" {
		return Unknown, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	// synonyms map
	synonyms := map[string]Label{
		"0":                PaymentSlip,
		"boleto":           PaymentSlip,
		"boletos":          PaymentSlip,
		"slip":             PaymentSlip,
		"1":                Invoice,
		"nota_fiscal":      Invoice,
		"notas_fiscais":    Invoice,
		"nfe":              Invoice,
		"2":                TaxStatement,
		"imposto_de_renda": TaxStatement,
		"irpf":             TaxStatement,
	}

	if l, ok := synonyms[normalized]; ok {
		return l, true
	}

	// check if it matches any label string
	for _, l := range AllLabels {
		if normalized == strings.ToLower(string(l)) {
			return l, true
		}
	}

	return Unknown, false
}
