package bootstrap

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/llm/ollama"
	"github.com/joseph-ayodele/statement-analyzer/internal/llm/openai"
)

func TestNewModelClient_Providers(t *testing.T) {
	cfg := common.DefaultConfig().LLM

	c, err := NewModelClient(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &ollama.Client{}, c)

	cfg.Provider = common.ProviderOpenAI
	cfg.APIKey = "sk-test"
	c, err = NewModelClient(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, c)

	cfg.Provider = "bedrock"
	_, err = NewModelClient(cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, true, slog.LevelInfo).Info("job.done", "job_id", "j1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "job.done", line["msg"])
	assert.Equal(t, "j1", line["job_id"])
	assert.Contains(t, line, "time")

	buf.Reset()
	NewLogger(&buf, false, slog.LevelWarn).Info("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, false, slog.LevelInfo).Info("job.done", "job_id", "j1")
	assert.Equal(t, "msg=job.done job_id=j1\n", buf.String())
}

func TestBuild(t *testing.T) {
	comps, err := Build(common.DefaultConfig(), nil)
	require.NoError(t, err)

	assert.NotNil(t, comps.Client)
	assert.NotNil(t, comps.Source)
	assert.NotNil(t, comps.Processor)
	assert.Zero(t, comps.Progress.Len())
}
