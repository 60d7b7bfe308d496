package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/statement-analyzer/internal/async"
	"github.com/joseph-ayodele/statement-analyzer/internal/export"
	"github.com/joseph-ayodele/statement-analyzer/internal/extract"
	"github.com/joseph-ayodele/statement-analyzer/internal/pipeline"
	"github.com/joseph-ayodele/statement-analyzer/internal/progress"
)

const creditReply = `[{"page_index":0,"transactions":[{"date":"01/01/2024","description":"salary","amount":100,"type":"credit","currency":"NGN"}]}]`

// echoClient answers every chunk with one 100.00 credit and records the models it saw.
type echoClient struct {
	mu     sync.Mutex
	models map[string]int
}

func (c *echoClient) Call(_ context.Context, model, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models == nil {
		c.models = map[string]int{}
	}
	c.models[model]++
	return creditReply, nil
}

func (c *echoClient) Repair(_ context.Context, _, _, previous string) (string, error) {
	return previous, nil
}

type reportBody struct {
	ByModel map[string]struct {
		TotalCredits float64 `json:"total_credits"`
	} `json:"by_model"`
	Errors     map[string]string `json:"errors"`
	Comparison struct {
		Agreement bool `json:"agreement"`
	} `json:"comparison"`
	Meta struct {
		JobID       string `json:"job_id"`
		ChunksTotal int    `json:"chunks_total"`
	} `json:"meta"`
}

type testEnv struct {
	client  *echoClient
	store   *progress.Store
	service *AnalyzerService
	handler http.Handler
}

func newTestEnv(t *testing.T, withQueue bool) *testEnv {
	t.Helper()
	client := &echoClient{}
	store := progress.NewStore(progress.Config{}, nil)
	proc := pipeline.NewProcessor(nil, client, store, pipeline.Config{Models: []string{"default"}})

	deps := Deps{
		Processor: proc,
		Progress:  store,
		Source:    extract.Router{Text: extract.TextSource{}},
		Exporter:  export.NewService(nil),
	}
	if withQueue {
		q := async.NewProcessorQueue(proc, nil, async.WithWorkers(1))
		t.Cleanup(func() { q.Shutdown(context.Background()) })
		deps.Queue = q
	}
	svc := NewAnalyzerService(deps, nil)
	return &testEnv{client: client, store: store, service: svc, handler: svc.Router()}
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return e.do(t, http.MethodPost, path, "application/json", body)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestAnalyzerService_AnalyzeMulti_JSON(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.postJSON(t, "/analyze-multi", map[string]any{
		"pages":           []string{"p0", "p1", "p2"},
		"models":          []string{"a", "b"},
		"pages_per_chunk": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep reportBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Len(t, rep.ByModel, 2)
	assert.Empty(t, rep.Errors)
	assert.Equal(t, 200.0, rep.ByModel["a"].TotalCredits)
	assert.True(t, rep.Comparison.Agreement)
	assert.Equal(t, 2, rep.Meta.ChunksTotal)
	assert.Equal(t, rep.Meta.JobID, rec.Header().Get("X-Job-Id"))
	assert.Equal(t, 2, env.client.models["b"])
}

func TestAnalyzerService_AnalyzeMulti_Upload(t *testing.T) {
	env := newTestEnv(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "statement.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("page one\fpage two\f"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("models", "llama3:8b, qwen3:30b"))
	require.NoError(t, mw.WriteField("pages_per_chunk", "1"))
	require.NoError(t, mw.Close())

	rec := env.do(t, http.MethodPost, "/analyze-multi", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep reportBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, 2, rep.Meta.ChunksTotal)
	assert.Contains(t, rep.ByModel, "llama3:8b")
	assert.Contains(t, rep.ByModel, "qwen3:30b")
}

func TestAnalyzerService_AnalyzeMulti_Rejections(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name string
		body map[string]any
		code int
		msg  string
	}{
		{"blank pages", map[string]any{"pages": []string{"", " \n"}}, http.StatusUnprocessableEntity, "no readable text"},
		{"no pages", map[string]any{"pages": []string{}}, http.StatusUnprocessableEntity, "no readable text"},
		{"chunk size too large", map[string]any{"pages": []string{"x"}, "pages_per_chunk": 9}, http.StatusBadRequest, "pages per chunk"},
		{"chunk size negative", map[string]any{"pages": []string{"x"}, "pages_per_chunk": -1}, http.StatusBadRequest, "pages per chunk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postJSON(t, "/analyze-multi", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, errorBody(t, rec), tt.msg)
		})
	}
	assert.Zero(t, env.store.Len())
}

func TestAnalyzerService_AnalyzeMulti_BadUploads(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/analyze-multi", "application/json", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "statement.docx")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("x"))
	require.NoError(t, mw.Close())
	rec = env.do(t, http.MethodPost, "/analyze-multi", mw.FormDataContentType(), buf.Bytes())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "docx")

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("pages_per_chunk", "two"))
	require.NoError(t, mw.Close())
	rec = env.do(t, http.MethodPost, "/analyze-multi", mw.FormDataContentType(), buf.Bytes())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzerService_Progress_UnknownJob(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/progress/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/jobs/nope/result", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzerService_Progress_AfterRun(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.postJSON(t, "/analyze-multi", map[string]any{"pages": []string{"p0"}})
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get("X-Job-Id")

	rec = env.do(t, http.MethodGet, "/progress/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		JobID   string  `json:"job_id"`
		Status  string  `json:"status"`
		Percent float64 `json:"percent"`
		Bar     string  `json:"bar"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body.JobID)
	assert.Equal(t, "DONE", body.Status)
	assert.Equal(t, 100.0, body.Percent)
	assert.NotEmpty(t, body.Bar)
}

func TestAnalyzerService_SubmitJob(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.postJSON(t, "/jobs", map[string]any{"pages": []string{"p0", "p1"}, "models": []string{"m"}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	id := accepted["job_id"]
	require.NotEmpty(t, id)
	assert.Equal(t, "/progress/"+id, accepted["status_url"])

	require.Eventually(t, func() bool {
		return env.do(t, http.MethodGet, "/jobs/"+id+"/result", "", nil).Code == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	rec = env.do(t, http.MethodGet, "/jobs/"+id+"/result", "", nil)
	var rep reportBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, id, rep.Meta.JobID)
	assert.Equal(t, 100.0, rep.ByModel["m"].TotalCredits)

	rec = env.do(t, http.MethodGet, "/jobs/"+id+"/export.xlsx", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "statement-"+id+".xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestAnalyzerService_SubmitJob_QueueDisabled(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.postJSON(t, "/jobs", map[string]any{"pages": []string{"p0"}})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestAnalyzerService_SubmitJob_QueueClosed(t *testing.T) {
	env := newTestEnv(t, true)
	env.service.queue.Shutdown(context.Background())

	rec := env.postJSON(t, "/jobs", map[string]any{"pages": []string{"p0"}})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	prog, err := env.store.Get(body["job_id"])
	require.NoError(t, err)
	assert.Equal(t, "FAILED", string(prog.Status))
}

func TestAnalyzerService_Health(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","jobs":0}`, rec.Body.String())
}
