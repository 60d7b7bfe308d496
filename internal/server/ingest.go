package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/pipeline"
)

// jsonRequest is the body accepted when pages are already extracted.
type jsonRequest struct {
	Pages         []string `json:"pages"`
	Models        []string `json:"models"`
	PagesPerChunk int      `json:"pages_per_chunk"`
}

// readRequest turns either a multipart upload or a JSON body into a pipeline request.
func (s *AnalyzerService) readRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, []string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body jsonRequest
		dec := json.NewDecoder(io.LimitReader(r.Body, s.maxUpload))
		if err := dec.Decode(&body); err != nil {
			return pipeline.Request{}, nil, common.InvalidInputErrorf("invalid JSON body: %v", err)
		}
		return pipeline.Request{Pages: body.Pages, Models: body.Models, PagesPerChunk: body.PagesPerChunk}, nil, nil
	}
	return s.readUpload(w, r)
}

func (s *AnalyzerService) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.Request, []string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return pipeline.Request{}, nil, common.InvalidInputErrorf("expected multipart form with a file: %v", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	size, err := parseChunkSize(r.FormValue("pages_per_chunk"))
	if err != nil {
		return pipeline.Request{}, nil, err
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		return pipeline.Request{}, nil, common.InvalidInputErrorf("file is required")
	}
	defer file.Close()

	ext := constants.NormalizeExt(filepath.Ext(hdr.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return pipeline.Request{}, nil, common.InvalidInputErrorf("unsupported statement type %q", ext)
	}

	tmp, err := os.CreateTemp("", "statement-*."+ext)
	if err != nil {
		return pipeline.Request{}, nil, common.WrapError(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		return pipeline.Request{}, nil, common.InvalidInputErrorf("read upload: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return pipeline.Request{}, nil, common.WrapError(err, "close temp file")
	}

	res, err := s.source.Pages(r.Context(), tmp.Name(), r.FormValue("password"))
	if err != nil {
		return pipeline.Request{}, nil, err
	}
	s.logger.Info("http.upload.extracted",
		"file", hdr.Filename,
		"bytes", hdr.Size,
		"pages", len(res.Pages),
		"method", res.Method,
		"encrypted", res.Encrypted,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return pipeline.Request{
		Pages:         res.Pages,
		Models:        splitModels(r.FormValue("models")),
		PagesPerChunk: size,
	}, res.Warnings, nil
}

func parseChunkSize(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, common.InvalidInputErrorf("pages_per_chunk must be an integer")
	}
	return n, nil
}

func splitModels(v string) []string {
	var out []string
	for _, m := range strings.Split(v, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
