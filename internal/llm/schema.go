package llm

// BuildPageListJSONSchema returns the JSON-Schema (draft 2020-12 subset) for a
// normalized model response: an array of page objects. Extra keys are allowed
// because models routinely add bookkeeping fields we ignore.
func BuildPageListJSONSchema() map[string]any {
	tx := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"date":        map[string]any{"type": "string"},
			"value_date":  nullable("string"),
			"description": map[string]any{"type": "string"},
			"channel":     nullable("string"),
			"doc_no":      nullable("string"),
			"amount":      map[string]any{"type": "number", "minimum": 0},
			"currency":    nullable("string"),
			"type":        map[string]any{"type": "string", "enum": []any{"credit", "debit"}},
		},
		"required": []any{"date", "description", "amount", "type"},
	}

	page := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"page_index":      map[string]any{"type": "integer"},
			"transactions":    map[string]any{"type": "array", "items": tx},
			"page_credit_sum": nullable("number"),
			"page_debit_sum":  nullable("number"),
			"document_totals": map[string]any{
				"type": []any{"object", "null"},
				"properties": map[string]any{
					"total_credit_reported": nullable("number"),
				},
			},
		},
		"required": []any{"page_index"},
	}

	return map[string]any{
		"type":  "array",
		"items": page,
	}
}

func nullable(t string) map[string]any {
	return map[string]any{"type": []any{t, "null"}}
}
