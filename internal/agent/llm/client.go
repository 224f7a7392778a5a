// Package llm wraps the Gemini client for JSON-schema constrained generation.
package llm

import (
	"context"
	"fmt"
	"net/http"

	logx "github.com/cepclima/server/pkg/logger"
	"google.golang.org/genai"
)

type ClientConfig struct {
	APIKey  string
	BaseURL string
	// HTTPClient is optional, mostly for tests.
	HTTPClient *http.Client
}

// NewClient builds the Gemini client shared by the decisor and the response
// chat model.
func NewClient(ctx context.Context, cfg ClientConfig) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}
