// Package extract recovers label-specific fields from raw document text.
package extract

import (
	"github.com/joseph-ayodele/docclass/constants"
)

// Field is one flattened value, addressed by its JSON group and key.
// Top-level scalars have an empty Group.
type Field struct {
	Group string
	Name  string
	Value string
}

// Fields is the structured result of one strategy. The key set is fixed per label:
// unmatched values are empty strings, never absent.
type Fields interface {
	Label() constants.Label
	Flatten() []Field
}

// Strategy turns raw (not normalized) text into Fields. Implementations are pure.
type Strategy interface {
	Label() constants.Label
	ExtractFields(raw string) Fields
}
