package openai

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/partlister/internal/llm"
)

// Provider hands out one lazily constructed Client shared by every caller. It implements the
// llm interfaces itself so consumers can hold it before the first request is made.
type Provider struct {
	cfg    Config
	logger *slog.Logger

	once   sync.Once
	client *Client
	err    error
}

var (
	_ llm.ListingWriter     = (*Provider)(nil)
	_ llm.PartNumberArbiter = (*Provider)(nil)
	_ llm.VisionReader      = (*Provider)(nil)
	_ llm.ToolReporter      = (*Provider)(nil)
)

func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{cfg: cfg, logger: logger}
}

// Enabled reports whether a credential is configured. Callers leave the AI paths unset when it
// returns false.
func (p *Provider) Enabled() bool {
	return p != nil && p.cfg.APIKey != ""
}

// Client returns the shared client, building it on first use.
func (p *Provider) Client() (*Client, error) {
	p.once.Do(func() {
		p.client, p.err = NewClient(p.cfg, p.logger)
		if p.err == nil {
			p.logger.Info("llm.client.ready", "base_url", p.client.cfg.BaseURL, "model", p.client.cfg.Model,
				"connectors", len(p.client.cfg.Connectors))
		}
	})
	return p.client, p.err
}

func (p *Provider) ModelName() string {
	if p.cfg.Model == "" {
		return defaultModel
	}
	return p.cfg.Model
}

func (p *Provider) AppliedTools() []string { return llm.ConnectorNames(p.cfg.Connectors) }

func (p *Provider) WriteListing(ctx context.Context, req llm.ListingRequest) (llm.ListingResponse, error) {
	c, err := p.Client()
	if err != nil {
		return llm.ListingResponse{}, err
	}
	return c.WriteListing(ctx, req)
}

func (p *Provider) PickPartNumber(ctx context.Context, req llm.PartNumberRequest) (llm.PartNumberChoice, error) {
	c, err := p.Client()
	if err != nil {
		return llm.PartNumberChoice{}, err
	}
	return c.PickPartNumber(ctx, req)
}

func (p *Provider) ReadImage(ctx context.Context, name string, data []byte) (llm.VisionText, error) {
	c, err := p.Client()
	if err != nil {
		return llm.VisionText{}, err
	}
	return c.ReadImage(ctx, name, data)
}
