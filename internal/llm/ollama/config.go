package ollama

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/statement-analyzer/constants"
)

// Config for the Ollama chat client.
type Config struct {
	Endpoint    string        // full chat URL, default http://localhost:11434/api/chat
	StrictJSON  bool          // send "format": "json"
	Temperature float64       // 0 keeps output deterministic
	Timeout     time.Duration // per request, default 180s
	RatePerSec  float64       // request pacing across all models; 0 = unlimited
	RateBurst   int
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = constants.DefaultOllamaURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultLLMTimeout
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	if cfg.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst)
	}
	return c
}

// tagsURL derives the model listing URL from the chat endpoint.
func (c *Client) tagsURL() string {
	base := c.cfg.Endpoint
	if i := strings.Index(base, "/api/"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimRight(base, "/") + "/api/tags"
}
