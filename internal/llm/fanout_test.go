package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	mu      sync.Mutex
	calls   []string
	replies map[string]string
	errs    map[string]error
	panics  map[string]bool
}

func (s *stubClient) Call(_ context.Context, model, _ string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, model)
	s.mu.Unlock()
	if s.panics[model] {
		panic("boom")
	}
	return s.replies[model], s.errs[model]
}

func (s *stubClient) Repair(ctx context.Context, model, prompt, _ string) (string, error) {
	return s.Call(ctx, model, prompt)
}

func TestFanOut_CollectsEveryModel(t *testing.T) {
	c := &stubClient{
		replies: map[string]string{"a": "[]", "b": `{"x":1}`},
		errs:    map[string]error{"c": &TransportError{Model: "c", Op: "call", StatusCode: 500, Body: "down"}},
		panics:  map[string]bool{"d": true},
	}

	out := FanOut(context.Background(), c, []string{"a", "b", "c", "d"}, "prompt")

	require.Len(t, out, 4)
	assert.Len(t, c.calls, 4)
	assert.Equal(t, "[]", out["a"].Payload())
	assert.Equal(t, `{"x":1}`, out["b"].Payload())
	assert.NoError(t, out["a"].Err)

	require.Error(t, out["c"].Err)
	assert.True(t, strings.HasPrefix(out["c"].Payload(), `{"error":"TransportError: `))

	require.Error(t, out["d"].Err)
	assert.Contains(t, out["d"].Err.Error(), "panic")
	assert.True(t, strings.HasPrefix(out["d"].Payload(), `{"error":"Error: `))
}

func TestFanOut_NoModels(t *testing.T) {
	out := FanOut(context.Background(), &stubClient{}, nil, "prompt")
	assert.Empty(t, out)
}

func TestErrorTypeName(t *testing.T) {
	assert.Equal(t, "TransportError", ErrorTypeName(&TransportError{Err: errors.New("x")}))
	assert.Equal(t, "ParseError", ErrorTypeName(&ParseError{Kind: ParseDecode, Msg: "m"}))
	assert.Equal(t, "Error", ErrorTypeName(errors.New("plain")))
}

func TestErrorMarker_IsJSON(t *testing.T) {
	marker := ErrorMarker(&ParseError{Kind: ParseShape, Msg: `got "string"`})
	assert.JSONEq(t, `{"error":"ParseError: shape: got \"string\""}`, marker)
}

// barrierClient only answers once every expected call is in flight at the same time.
type barrierClient struct {
	mu      sync.Mutex
	waiting int
	want    int
	all     chan struct{}
}

func (b *barrierClient) Call(ctx context.Context, model, _ string) (string, error) {
	b.mu.Lock()
	b.waiting++
	if b.waiting == b.want {
		close(b.all)
	}
	b.mu.Unlock()

	select {
	case <-b.all:
		return `[]`, nil
	case <-time.After(2 * time.Second):
		return "", errors.New("other models were not called concurrently")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (b *barrierClient) Repair(ctx context.Context, model, prompt, _ string) (string, error) {
	return b.Call(ctx, model, prompt)
}

func TestFanOut_CallsModelsConcurrently(t *testing.T) {
	models := []string{"a", "b", "c", "d"}
	c := &barrierClient{want: len(models), all: make(chan struct{})}

	out := FanOut(context.Background(), c, models, "prompt")

	require.Len(t, out, len(models))
	for _, m := range models {
		assert.NoError(t, out[m].Err, m)
		assert.Equal(t, "[]", out[m].Text)
	}
}
