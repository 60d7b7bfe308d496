package llm

import (
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

// ParseExtraction turns a raw model response into validated pages.
//
// Accepted shapes after sanitizing: an array of pages, a single page object, or
// {"pages": [...]}. Every failure is a *ParseError.
func ParseExtraction(raw string) ([]entity.PageExtraction, error) {
	cleaned := Sanitize(raw)

	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, &ParseError{Kind: ParseDecode, Msg: "response is not valid JSON", Cause: err}
	}

	items, err := normalizeShape(v)
	if err != nil {
		return nil, err
	}
	for i, it := range items {
		p, ok := it.(map[string]any)
		if !ok {
			return nil, &ParseError{Kind: ParseShape, Msg: fmt.Sprintf("page %d is %s, want object", i, jsonKind(it))}
		}
		normalizePage(p)
	}

	if err := ValidatePageList(items); err != nil {
		return nil, &ParseError{Kind: ParseSchema, Msg: "page list failed validation", Cause: err}
	}

	b, err := json.Marshal(items)
	if err != nil {
		return nil, &ParseError{Kind: ParseDecode, Msg: "re-encode pages", Cause: err}
	}
	var pages []entity.PageExtraction
	if err := json.Unmarshal(b, &pages); err != nil {
		return nil, &ParseError{Kind: ParseSchema, Msg: "decode pages", Cause: err}
	}
	for i := range pages {
		if pages[i].Transactions == nil {
			pages[i].Transactions = []entity.Transaction{}
		}
	}
	return pages, nil
}

func normalizeShape(v any) ([]any, error) {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["pages"]; ok {
			v = inner
		}
	}
	switch t := v.(type) {
	case []any:
		return t, nil
	case map[string]any:
		return []any{t}, nil
	default:
		return nil, &ParseError{Kind: ParseShape, Msg: fmt.Sprintf("got %s, want array or object", jsonKind(v))}
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
