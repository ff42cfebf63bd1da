package extract

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/common"
)

// Dispatcher is the single point mapping a label to its strategy.
type Dispatcher struct {
	strategies map[constants.Label]Strategy
	schemas    map[constants.Label]*jsonschema.Schema
}

func NewDispatcher(strategies ...Strategy) (*Dispatcher, error) {
	d := &Dispatcher{
		strategies: make(map[constants.Label]Strategy, len(strategies)),
		schemas:    make(map[constants.Label]*jsonschema.Schema, len(strategies)),
	}
	for _, s := range strategies {
		label := s.Label()
		d.strategies[label] = s
		if m, ok := SchemaFor(label); ok {
			schema, err := compileSchema(label, m)
			if err != nil {
				return nil, fmt.Errorf("schema for %s: %w", label, err)
			}
			d.schemas[label] = schema
		}
	}
	return d, nil
}

// Default registers the payment slip, invoice and tax statement strategies.
func Default() (*Dispatcher, error) {
	return NewDispatcher(PaymentSlipStrategy{}, InvoiceStrategy{}, TaxStatementStrategy{})
}

func (d *Dispatcher) For(label constants.Label) (Strategy, error) {
	s, ok := d.strategies[label]
	if !ok {
		return nil, common.UnknownDocumentTypeError(label)
	}
	return s, nil
}

func (d *Dispatcher) Extract(label constants.Label, raw string) (Fields, error) {
	s, err := d.For(label)
	if err != nil {
		return nil, err
	}
	return s.ExtractFields(raw), nil
}

// Validate checks fields against its label's schema.
func (d *Dispatcher) Validate(fields Fields) error {
	schema, ok := d.schemas[fields.Label()]
	if !ok {
		return common.UnknownDocumentTypeError(fields.Label())
	}
	v, err := toJSONValue(fields)
	if err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s fields do not match schema: %w", common.ErrValidation, fields.Label(), err)
	}
	return nil
}

// AsMap renders fields with their JSON keys, for structpb and YAML output.
func AsMap(fields Fields) (map[string]any, error) {
	v, err := toJSONValue(fields)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s fields did not encode as an object", fields.Label())
	}
	return m, nil
}

func toJSONValue(fields Fields) (any, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal %s fields: %w", fields.Label(), err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s fields: %w", fields.Label(), err)
	}
	return v, nil
}

// Decode rebuilds typed fields from their stored JSON.
func Decode(label constants.Label, data []byte) (Fields, error) {
	var (
		f   Fields
		err error
	)
	switch label {
	case constants.PaymentSlip:
		var v PaymentSlipFields
		err = json.Unmarshal(data, &v)
		f = v
	case constants.Invoice:
		var v InvoiceFields
		err = json.Unmarshal(data, &v)
		f = v
	case constants.TaxStatement:
		var v TaxStatementFields
		err = json.Unmarshal(data, &v)
		f = v
	default:
		return nil, common.UnknownDocumentTypeError(label)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s fields: %w", label, err)
	}
	return f, nil
}
