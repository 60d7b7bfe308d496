package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TransportError is a failed exchange with a model endpoint: network error,
// timeout, non-2xx status, or unreadable body.
type TransportError struct {
	Model      string
	Op         string // "call" | "repair" | "ping"
	StatusCode int    // 0 when no response was received
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: model error (status %d): %s", e.Op, e.Model, e.StatusCode, truncate(e.Body, 300))
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Model, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseErrorKind says which stage of parsing rejected the text.
type ParseErrorKind string

const (
	ParseDecode ParseErrorKind = "decode" // not JSON even after sanitizing
	ParseShape  ParseErrorKind = "shape"  // JSON, but not a page list / page / {"pages": [...]}
	ParseSchema ParseErrorKind = "schema" // page or transaction failed validation
)

// ParseError reports why a model response could not be turned into pages.
type ParseError struct {
	Kind  ParseErrorKind
	Msg   string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ErrorTypeName gives the short type label used in error markers.
func ErrorTypeName(err error) string {
	var te *TransportError
	var pe *ParseError
	switch {
	case errors.As(err, &te):
		return "TransportError"
	case errors.As(err, &pe):
		return "ParseError"
	default:
		return "Error"
	}
}

// ErrorMarker serializes err as {"error":"<Type>: <msg>"}.
func ErrorMarker(err error) string {
	b, _ := json.Marshal(map[string]string{"error": ErrorTypeName(err) + ": " + err.Error()})
	return string(b)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
