package llm

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

var (
	// currency symbols/codes, thousands separators and spaces around a number
	reMoneyNoise = regexp.MustCompile(`[^\d.\-()]`)
	reDecimal    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// normalizePage applies the lenient fixes to one decoded page object in place:
// a missing page_index next to transactions becomes -1, numeric strings become
// numbers, and negative amounts lose their sign.
func normalizePage(p map[string]any) {
	idx, hasIdx := p["page_index"]
	if !hasIdx || idx == nil {
		if _, ok := p["transactions"]; ok {
			p["page_index"] = float64(entity.UnknownPageIndex)
		}
	} else if s, ok := idx.(string); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			p["page_index"] = float64(n)
		}
	}

	for _, k := range []string{"page_credit_sum", "page_debit_sum"} {
		coerceNumber(p, k, false)
	}
	if dt, ok := p["document_totals"].(map[string]any); ok {
		coerceNumber(dt, "total_credit_reported", false)
	}

	txs, ok := p["transactions"].([]any)
	if !ok {
		return
	}
	for _, t := range txs {
		if tx, ok := t.(map[string]any); ok {
			coerceNumber(tx, "amount", true)
		}
	}
}

// coerceNumber turns a money-ish string into a float64. Values that do not
// look like numbers are left alone for the schema to reject.
func coerceNumber(m map[string]any, key string, abs bool) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		if abs {
			m[key] = math.Abs(t)
		}
	case string:
		f, ok := parseMoney(t)
		if !ok {
			return
		}
		if abs {
			f = math.Abs(f)
		}
		m[key] = f
	}
}

// parseMoney accepts "1,234.50", "₦1,234.50", "NGN 1 234.50", "(12.00)".
func parseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
	}
	s = reMoneyNoise.ReplaceAllString(s, "")
	s = strings.Trim(s, "()")
	if !reDecimal.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}
