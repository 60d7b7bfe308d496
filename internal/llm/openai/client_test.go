package openai

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

func TestClient_Call(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  [] \n"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", JSONMode: true}, nil)
	text, err := c.Call(context.Background(), "gpt-4o-mini", "PROMPT")
	require.NoError(t, err)

	assert.Equal(t, "[]", text)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	assert.Len(t, body["messages"], 2)
}

func TestClient_Repair_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Repair(context.Background(), "m", "p", "prev")

	var te *llm.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "repair", te.Op)
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(Config{APIKey: "good", BaseURL: srv.URL}, nil).Ping(context.Background()))
	assert.Error(t, NewClient(Config{APIKey: "bad", BaseURL: srv.URL}, nil).Ping(context.Background()))
}
