package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/statement-analyzer/internal/llm"
)

func newTestServer(t *testing.T, reply string, status int, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		case "/api/chat":
		default:
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Call_NativeEnvelope(t *testing.T) {
	var seen chatRequest
	srv := newTestServer(t, `{"message":{"role":"assistant","content":"[]"},"done":true}`, http.StatusOK, &seen)
	c := NewClient(Config{Endpoint: srv.URL + "/api/chat", StrictJSON: true}, nil)

	text, err := c.Call(context.Background(), "mistral:7b-instruct", "PROMPT")
	require.NoError(t, err)

	assert.Equal(t, "[]", text)
	assert.Equal(t, "mistral:7b-instruct", seen.Model)
	assert.Equal(t, "json", seen.Format)
	assert.False(t, seen.Stream)
	assert.Equal(t, 0.0, seen.Options.Temperature)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, llm.RoleSystem, seen.Messages[0].Role)
	assert.Equal(t, "PROMPT", seen.Messages[1].Content)
}

func TestClient_Call_NoFormatWhenNotStrict(t *testing.T) {
	var seen chatRequest
	srv := newTestServer(t, `{"message":{"content":"ok"}}`, http.StatusOK, &seen)
	c := NewClient(Config{Endpoint: srv.URL + "/api/chat"}, nil)

	_, err := c.Call(context.Background(), "m", "p")
	require.NoError(t, err)
	assert.Empty(t, seen.Format)
}

func TestClient_Repair_SendsFourMessages(t *testing.T) {
	var seen chatRequest
	srv := newTestServer(t, `{"message":{"content":"[]"}}`, http.StatusOK, &seen)
	c := NewClient(Config{Endpoint: srv.URL + "/api/chat", StrictJSON: true}, nil)

	_, err := c.Repair(context.Background(), "m", "PROMPT", "oops")
	require.NoError(t, err)

	require.Len(t, seen.Messages, 4)
	assert.Equal(t, llm.RoleAssistant, seen.Messages[2].Role)
	assert.Equal(t, "oops", seen.Messages[2].Content)
	assert.Equal(t, llm.RepairInstruction, seen.Messages[3].Content)
}

func TestClient_Call_OtherEnvelopes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"generate", `{"response":"[1]"}`, "[1]"},
		{"openai compatible", `{"choices":[{"message":{"content":"[2]"}}]}`, "[2]"},
		{"unknown object", `{"something":"else"}`, `{"something":"else"}`},
		{"not json", `plain text`, `plain text`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.reply, http.StatusOK, nil)
			c := NewClient(Config{Endpoint: srv.URL + "/api/chat"}, nil)

			text, err := c.Call(context.Background(), "m", "p")
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestClient_Call_Non2xxIsTransportError(t *testing.T) {
	srv := newTestServer(t, `model "m" not found`, http.StatusNotFound, nil)
	c := NewClient(Config{Endpoint: srv.URL + "/api/chat"}, nil)

	_, err := c.Call(context.Background(), "m", "p")
	require.Error(t, err)

	var te *llm.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, "m", te.Model)
	assert.Equal(t, "call", te.Op)
	assert.Contains(t, te.Body, "not found")
}

func TestClient_Call_UnreachableIsTransportError(t *testing.T) {
	c := NewClient(Config{Endpoint: "http://127.0.0.1:1/api/chat"}, nil)

	_, err := c.Call(context.Background(), "m", "p")
	var te *llm.TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
}

func TestClient_Ping(t *testing.T) {
	up := newTestServer(t, "", http.StatusOK, nil)
	assert.NoError(t, NewClient(Config{Endpoint: up.URL + "/api/chat"}, nil).Ping(context.Background()))

	down := newTestServer(t, "", http.StatusServiceUnavailable, nil)
	assert.Error(t, NewClient(Config{Endpoint: down.URL + "/api/chat"}, nil).Ping(context.Background()))
}

func TestClient_TagsURL(t *testing.T) {
	c := NewClient(Config{Endpoint: "http://host:11434/api/chat"}, nil)
	assert.Equal(t, "http://host:11434/api/tags", c.tagsURL())
}
