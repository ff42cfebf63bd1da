package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docclass/constants"
)

// SchemaFor returns the JSON Schema of a label's field set: every key required,
// no extra keys, every leaf a string.
func SchemaFor(label constants.Label) (map[string]any, bool) {
	switch label {
	case constants.PaymentSlip:
		return object(map[string]any{
			"Cedente":                object(stringProps("Nome", "Agência/Código", "Espécie")),
			"Documento":              object(stringProps("Nosso Número", "Número do Documento", "CPF/CNPJ", "Vencimento", "Valor do Documento")),
			"Descontos e Acréscimos": object(stringProps("Desconto/Abatimento", "Outras Deduções", "Mora/Multa", "Outros Acréscimos", "Valor Cobrado")),
			"Sacado":                 object(stringProps("Nome", "Endereço", "Bairro e CEP")),
			"Instruções":             stringProp(),
			"Autenticação Mecânica":  stringProp(),
		}), true
	case constants.Invoice:
		return object(map[string]any{
			"Dados da Nota Fiscal": object(stringProps(
				"Numero da Nota Fiscal", "Serie", "Data de Emissao", "Modelo", "Natureza da Operacao",
				"Evento Mais Recente", "Data/Hora Evento Mais Recente", "Chave de Acesso")),
			"Dados do Emitente": object(stringProps("CPF/CNPJ", "Razao Social", "UF", "Municipio")),
			"Dados do Destinatario": object(stringProps(
				"CNPJ", "Nome", "UF", "Indicador IE", "Destino da Operacao", "Consumidor Final", "Presenca do Comprador")),
			"Valor Nota Fiscal": object(stringProps("Valor")),
			"Nota":              stringProp(),
		}), true
	case constants.TaxStatement:
		row := object(stringProps("Data", "Descrição", "Valor"))
		return object(map[string]any{
			"Contribuinte": object(stringProps("Nome", "CPF")),
			"Período":      object(stringProps("Início", "Fim")),
			"Receitas":     map[string]any{"type": "array", "items": row},
			"Despesas":     map[string]any{"type": "array", "items": row},
			"Resumo":       object(stringProps("Total de Receitas", "Total de Despesas", "Imposto a Pagar")),
		}), true
	}
	return nil, false
}

func object(props map[string]any) map[string]any {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func stringProps(keys ...string) map[string]any {
	props := make(map[string]any, len(keys))
	for _, k := range keys {
		props[k] = stringProp()
	}
	return props
}

func stringProp() map[string]any {
	return map[string]any{"type": "string"}
}

func compileSchema(label constants.Label, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := string(label) + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
