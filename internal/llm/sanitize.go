package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	reFence      = regexp.MustCompile("(?mi)^```(?:json)?\\s*|\\s*```$")
	reThinkBlock = regexp.MustCompile(`(?is)<think\b[^>]*>.*?</think>`)
	reThinkTag   = regexp.MustCompile(`(?i)</?think\b[^>]*>`)
)

// Sanitize recovers a JSON document from a model response. It never fails: when
// nothing usable is found the input comes back unchanged and the parser reports it.
//
// Order: valid JSON is returned untouched; otherwise strip fences and think
// blocks and take the text if it parses; else the first top-level balanced
// array/object that parses (several top-level objects are wrapped into an
// array); else retry both after swapping single quotes for double quotes.
// Values nested inside an invalid outer value are never returned on their own.
func Sanitize(raw string) string {
	if t := strings.TrimSpace(raw); t != "" && json.Valid([]byte(t)) {
		return t
	}
	s := stripWrappers(raw)
	if s == "" {
		return raw
	}
	if json.Valid([]byte(s)) {
		return s
	}
	if v, ok := extractJSON(s); ok {
		return v
	}
	if q := swapSingleQuotes(s); q != s {
		if json.Valid([]byte(q)) {
			return q
		}
		if v, ok := extractJSON(q); ok {
			return v
		}
	}
	return raw
}

func stripWrappers(s string) string {
	s = strings.TrimSpace(s)
	s = reThinkBlock.ReplaceAllString(s, "")
	s = reThinkTag.ReplaceAllString(s, "")
	s = reFence.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(s)
}

// extractJSON returns the first top-level balanced value in s that is valid
// JSON. A balanced value that does not parse is skipped whole; an opener that
// never closes ends the scan, since everything after it is inside it. An object
// followed by more objects is wrapped into one array.
func extractJSON(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '[' && s[i] != '{' {
			continue
		}
		end, ok := matchBalanced(s, i)
		if !ok {
			return "", false
		}
		cand := s[i : end+1]
		if !json.Valid([]byte(cand)) {
			i = end
			continue
		}
		if s[i] == '{' {
			if wrapped, ok := wrapObjects(s, i); ok {
				return wrapped, true
			}
		}
		return cand, true
	}
	return "", false
}

// wrapObjects collects the valid top-level objects from start onward and joins
// them into an array when there are at least two.
func wrapObjects(s string, start int) (string, bool) {
	var objs []string
	for i := start; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end, ok := matchBalanced(s, i)
		if !ok {
			break
		}
		if obj := s[i : end+1]; json.Valid([]byte(obj)) {
			objs = append(objs, obj)
		}
		i = end
	}
	if len(objs) < 2 {
		return "", false
	}
	return "[" + strings.Join(objs, ",") + "]", true
}

// matchBalanced finds the index closing the bracket at s[start]. Only the same
// bracket kind is counted; brackets inside string literals are ignored.
func matchBalanced(s string, start int) (int, bool) {
	open := s[start]
	closer := byte(']')
	if open == '{' {
		closer = '}'
	}
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// swapSingleQuotes turns every unescaped ' into ".
func swapSingleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' && (i == 0 || s[i-1] != '\\') {
			b.WriteByte('"')
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
