package openai

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/partlister/internal/common"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4.1-mini"
)

// Config for the OpenAI client.
type Config struct {
	APIKey                string
	BaseURL               string  // default https://api.openai.com/v1
	Model                 string  // listing and arbiter model
	VisionModel           string  // falls back to Model
	Temperature           float32 // listing temperature
	PartNumberTemperature float32
	Timeout               time.Duration
	Connectors            []string // MCP connector names attached as tools
}

// ConfigFrom maps the application config onto the client config.
func ConfigFrom(c common.LLMConfig) Config {
	return Config{
		APIKey:                c.APIKey,
		BaseURL:               c.BaseURL,
		Model:                 c.Model,
		VisionModel:           c.VisionModel,
		Temperature:           c.Temperature,
		PartNumberTemperature: c.PartNumberTemperature,
		Timeout:               c.Timeout,
		Connectors:            c.MCPConnectors,
	}
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a client. A blank API key is ErrBackendUnavailable: callers are expected to
// take their mock paths instead of constructing a client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.NewAppError(common.CodeBackendUnavailable, "openai api key not set", common.ErrBackendUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// ModelName is the configured listing model.
func (c *Client) ModelName() string { return c.cfg.Model }
