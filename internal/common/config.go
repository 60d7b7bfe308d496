package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/joseph-ayodele/statement-analyzer/constants"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Progress ProgressConfig
	Extract  ExtractConfig
	Queue    QueueConfig
	Inbox    InboxConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	HealthInterval time.Duration
	MaxUploadBytes int64
}

// LLMConfig holds model endpoint configuration
type LLMConfig struct {
	Provider    string // "ollama" (default) or "openai"
	Endpoint    string // full chat URL, e.g. http://localhost:11434/api/chat
	APIKey      string // openai only
	BaseURL     string // openai only
	Models      []string
	StrictJSON  bool // ask the endpoint for "format": "json"
	Temperature float64
	Timeout     time.Duration
	RatePerSec  float64 // 0 = unlimited
	RateBurst   int
}

// PipelineConfig holds orchestration knobs
type PipelineConfig struct {
	PagesPerChunk int
	HistoryLimit  int
}

// ProgressConfig holds the in-memory job store eviction policy
type ProgressConfig struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
}

// ExtractConfig holds page-text extraction tools and thresholds
type ExtractConfig struct {
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	OCREmptyRatio float64
}

// QueueConfig holds async worker settings
type QueueConfig struct {
	Workers int
	Size    int
	Timeout time.Duration
}

// InboxConfig enables the watched drop directory; an empty Dir disables it
type InboxConfig struct {
	Dir         string
	OutDir      string // reports land here; default <Dir>/reports
	Debounce    time.Duration
	InitialScan bool
	SkipHidden  bool
}

// Model providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// fileConfig mirrors Config for TOML files; durations are strings like "90s".
type fileConfig struct {
	Server struct {
		HTTPAddr       *string `toml:"http_addr"`
		GRPCAddr       *string `toml:"grpc_addr"`
		HealthInterval *string `toml:"health_interval"`
		MaxUploadBytes *int64  `toml:"max_upload_bytes"`
	} `toml:"server"`
	LLM struct {
		Provider    *string  `toml:"provider"`
		Endpoint    *string  `toml:"endpoint"`
		BaseURL     *string  `toml:"base_url"`
		Models      []string `toml:"models"`
		StrictJSON  *bool    `toml:"strict_json"`
		Temperature *float64 `toml:"temperature"`
		Timeout     *string  `toml:"timeout"`
		RatePerSec  *float64 `toml:"rate_per_sec"`
		RateBurst   *int     `toml:"rate_burst"`
	} `toml:"llm"`
	Pipeline struct {
		PagesPerChunk *int `toml:"pages_per_chunk"`
		HistoryLimit  *int `toml:"history_limit"`
	} `toml:"pipeline"`
	Progress struct {
		TTL           *string `toml:"ttl"`
		MaxEntries    *int    `toml:"max_entries"`
		SweepInterval *string `toml:"sweep_interval"`
	} `toml:"progress"`
	Extract struct {
		Pdftotext     *string  `toml:"pdftotext"`
		Pdftoppm      *string  `toml:"pdftoppm"`
		Tesseract     *string  `toml:"tesseract"`
		TesseractLang *string  `toml:"tesseract_lang"`
		TessdataDir   *string  `toml:"tessdata_dir"`
		DPI           *int     `toml:"dpi"`
		OCREmptyRatio *float64 `toml:"ocr_empty_ratio"`
	} `toml:"extract"`
	Queue struct {
		Workers *int    `toml:"workers"`
		Size    *int    `toml:"size"`
		Timeout *string `toml:"timeout"`
	} `toml:"queue"`
	Inbox struct {
		Dir         *string `toml:"dir"`
		OutDir      *string `toml:"out_dir"`
		Debounce    *string `toml:"debounce"`
		InitialScan *bool   `toml:"initial_scan"`
		SkipHidden  *bool   `toml:"skip_hidden"`
	} `toml:"inbox"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       ":8000",
			GRPCAddr:       ":8081",
			HealthInterval: 30 * time.Second,
			MaxUploadBytes: 50 << 20,
		},
		LLM: LLMConfig{
			Provider:    ProviderOllama,
			Endpoint:    constants.DefaultOllamaURL,
			Models:      []string{constants.DefaultModel},
			StrictJSON:  true,
			Temperature: 0,
			Timeout:     constants.DefaultLLMTimeout,
			RateBurst:   1,
		},
		Pipeline: PipelineConfig{
			PagesPerChunk: constants.DefaultPagesPerChunk,
			HistoryLimit:  constants.DefaultHistoryLimit,
		},
		Progress: ProgressConfig{
			TTL:           constants.DefaultProgressTTL,
			MaxEntries:    constants.DefaultMaxJobs,
			SweepInterval: 5 * time.Minute,
		},
		Extract: ExtractConfig{
			Pdftotext:     "pdftotext",
			Pdftoppm:      "pdftoppm",
			Tesseract:     "tesseract",
			TesseractLang: "eng",
			DPI:           300,
			OCREmptyRatio: constants.OCREmptyPageRatio,
		},
		Queue: QueueConfig{
			Workers: 2,
			Size:    64,
			Timeout: 30 * time.Minute,
		},
		Inbox: InboxConfig{
			Debounce:    2 * time.Second,
			InitialScan: true,
			SkipHidden:  true,
		},
	}
}

// LoadConfig layers defaults, an optional TOML file, then environment variables.
// An empty path falls back to STATEMENT_CONFIG; no file at all is fine.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if path == "" {
		path = os.Getenv("STATEMENT_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
		if err := c.applyTOML(raw); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "parse config file "+path, err)
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyTOML(raw []byte) error {
	var f fileConfig
	if err := toml.Unmarshal(raw, &f); err != nil {
		return err
	}
	var errs []string
	dur := func(dst *time.Duration, v *string, key string) {
		if v == nil {
			return
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = d
	}

	setString(&c.Server.HTTPAddr, f.Server.HTTPAddr)
	setString(&c.Server.GRPCAddr, f.Server.GRPCAddr)
	dur(&c.Server.HealthInterval, f.Server.HealthInterval, "server.health_interval")
	if f.Server.MaxUploadBytes != nil {
		c.Server.MaxUploadBytes = *f.Server.MaxUploadBytes
	}

	setString(&c.LLM.Provider, f.LLM.Provider)
	setString(&c.LLM.Endpoint, f.LLM.Endpoint)
	setString(&c.LLM.BaseURL, f.LLM.BaseURL)
	if len(f.LLM.Models) > 0 {
		c.LLM.Models = cleanList(f.LLM.Models)
	}
	if f.LLM.StrictJSON != nil {
		c.LLM.StrictJSON = *f.LLM.StrictJSON
	}
	setFloat(&c.LLM.Temperature, f.LLM.Temperature)
	dur(&c.LLM.Timeout, f.LLM.Timeout, "llm.timeout")
	setFloat(&c.LLM.RatePerSec, f.LLM.RatePerSec)
	setInt(&c.LLM.RateBurst, f.LLM.RateBurst)

	setInt(&c.Pipeline.PagesPerChunk, f.Pipeline.PagesPerChunk)
	setInt(&c.Pipeline.HistoryLimit, f.Pipeline.HistoryLimit)

	dur(&c.Progress.TTL, f.Progress.TTL, "progress.ttl")
	setInt(&c.Progress.MaxEntries, f.Progress.MaxEntries)
	dur(&c.Progress.SweepInterval, f.Progress.SweepInterval, "progress.sweep_interval")

	setString(&c.Extract.Pdftotext, f.Extract.Pdftotext)
	setString(&c.Extract.Pdftoppm, f.Extract.Pdftoppm)
	setString(&c.Extract.Tesseract, f.Extract.Tesseract)
	setString(&c.Extract.TesseractLang, f.Extract.TesseractLang)
	setString(&c.Extract.TessdataDir, f.Extract.TessdataDir)
	setInt(&c.Extract.DPI, f.Extract.DPI)
	setFloat(&c.Extract.OCREmptyRatio, f.Extract.OCREmptyRatio)

	setInt(&c.Queue.Workers, f.Queue.Workers)
	setInt(&c.Queue.Size, f.Queue.Size)
	dur(&c.Queue.Timeout, f.Queue.Timeout, "queue.timeout")

	setString(&c.Inbox.Dir, f.Inbox.Dir)
	setString(&c.Inbox.OutDir, f.Inbox.OutDir)
	dur(&c.Inbox.Debounce, f.Inbox.Debounce, "inbox.debounce")
	if f.Inbox.InitialScan != nil {
		c.Inbox.InitialScan = *f.Inbox.InitialScan
	}
	if f.Inbox.SkipHidden != nil {
		c.Inbox.SkipHidden = *f.Inbox.SkipHidden
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HealthInterval = getEnvAsDuration("HEALTH_INTERVAL", c.Server.HealthInterval)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Endpoint = getEnv("OLLAMA_URL", c.LLM.Endpoint)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	if v := os.Getenv("MODELS"); v != "" {
		c.LLM.Models = cleanList(strings.Split(v, ","))
	}
	c.LLM.StrictJSON = getEnvAsBool("JSON_FORMAT", c.LLM.StrictJSON)
	c.LLM.Temperature = getEnvAsFloat("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.RatePerSec = getEnvAsFloat("LLM_RATE_PER_SEC", c.LLM.RatePerSec)
	c.LLM.RateBurst = getEnvAsInt("LLM_RATE_BURST", c.LLM.RateBurst)

	c.Pipeline.PagesPerChunk = getEnvAsInt("PAGES_PER_CHUNK", c.Pipeline.PagesPerChunk)
	c.Pipeline.HistoryLimit = getEnvAsInt("HISTORY_LIMIT", c.Pipeline.HistoryLimit)

	c.Progress.TTL = getEnvAsDuration("PROGRESS_TTL", c.Progress.TTL)
	c.Progress.MaxEntries = getEnvAsInt("PROGRESS_MAX_ENTRIES", c.Progress.MaxEntries)
	c.Progress.SweepInterval = getEnvAsDuration("PROGRESS_SWEEP_INTERVAL", c.Progress.SweepInterval)

	c.Extract.Pdftotext = getEnv("PDFTOTEXT", c.Extract.Pdftotext)
	c.Extract.Pdftoppm = getEnv("PDFTOPPM", c.Extract.Pdftoppm)
	c.Extract.Tesseract = getEnv("TESSERACT", c.Extract.Tesseract)
	c.Extract.TesseractLang = getEnv("TESSERACT_LANG", c.Extract.TesseractLang)
	c.Extract.TessdataDir = getEnv("TESSDATA_PREFIX", c.Extract.TessdataDir)
	c.Extract.DPI = getEnvAsInt("OCR_DPI", c.Extract.DPI)
	c.Extract.OCREmptyRatio = getEnvAsFloat("OCR_EMPTY_RATIO", c.Extract.OCREmptyRatio)

	c.Queue.Workers = getEnvAsInt("QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.Size = getEnvAsInt("QUEUE_SIZE", c.Queue.Size)
	c.Queue.Timeout = getEnvAsDuration("QUEUE_TIMEOUT", c.Queue.Timeout)

	c.Inbox.Dir = getEnv("INBOX_DIR", c.Inbox.Dir)
	c.Inbox.OutDir = getEnv("INBOX_OUT_DIR", c.Inbox.OutDir)
	c.Inbox.Debounce = getEnvAsDuration("INBOX_DEBOUNCE", c.Inbox.Debounce)
	c.Inbox.InitialScan = getEnvAsBool("INBOX_INITIAL_SCAN", c.Inbox.InitialScan)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("OLLAMA_URL", c.LLM.Endpoint, Required).
		Field("MODELS", c.LLM.Models, Required).
		Field("PAGES_PER_CHUNK", c.Pipeline.PagesPerChunk, IntRange(constants.MinPagesPerChunk, constants.MaxPagesPerChunk)).
		Field("HISTORY_LIMIT", c.Pipeline.HistoryLimit, Positive).
		Field("LLM_TIMEOUT", int64(c.LLM.Timeout), Positive).
		Field("PROGRESS_MAX_ENTRIES", c.Progress.MaxEntries, Positive)
	switch c.LLM.Provider {
	case ProviderOllama:
	case ProviderOpenAI:
		v.Field("OPENAI_API_KEY", c.LLM.APIKey, Required)
	default:
		v.Field("LLM_PROVIDER", c.LLM.Provider, func(field string, value interface{}) *ValidationError {
			return &ValidationError{Field: field, Value: value, Message: "must be ollama or openai"}
		})
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
