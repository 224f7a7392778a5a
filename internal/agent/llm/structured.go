package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cepclima/server/internal/agent/model"
	logx "github.com/cepclima/server/pkg/logger"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// ErrNoObject is returned when the model answers without a usable JSON object.
var ErrNoObject = errors.New("llm: no structured object in response")

// ObjectRequest describes one structured-generation call.
type ObjectRequest struct {
	Model       string
	Messages    []*schema.Message
	Temperature float32
	Schema      *genai.Schema
}

// ObjectGenerator is the structured-generation capability the decisor needs.
type ObjectGenerator interface {
	GenerateObject(ctx context.Context, req ObjectRequest) (json.RawMessage, error)
}

type Structured struct {
	client *genai.Client
	cost   model.CostConfig
}

func NewStructured(client *genai.Client, cost model.CostConfig) *Structured {
	return &Structured{client: client, cost: cost}
}

// GenerateObject asks the model for a JSON object matching req.Schema.
// System messages become the system instruction; the rest are sent in order.
func (s *Structured) GenerateObject(ctx context.Context, req ObjectRequest) (json.RawMessage, error) {
	contents, system := toContents(req.Messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("llm: request without user content")
	}

	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if system != nil {
		cfg.SystemInstruction = system
	}

	resp, err := s.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	s.logUsage(req.Model, resp.UsageMetadata)

	return parseObject(resp.Text())
}

func toContents(msgs []*schema.Message) ([]*genai.Content, *genai.Content) {
	var (
		contents []*genai.Content
		system   []string
	)
	for _, m := range msgs {
		if m == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case schema.System:
			system = append(system, m.Content)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
}

// parseObject accepts the raw model text, tolerating a markdown code fence.
func parseObject(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoObject
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil || len(obj) == 0 {
		return nil, ErrNoObject
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return nil, ErrNoObject
	}
	return buf.Bytes(), nil
}

func (s *Structured) logUsage(modelName string, meta *genai.GenerateContentResponseUsageMetadata) {
	if meta == nil {
		return
	}
	cost, ok := s.cost.Estimate(modelName, &schema.TokenUsage{
		PromptTokens:     int(meta.PromptTokenCount),
		CompletionTokens: int(meta.CandidatesTokenCount),
		TotalTokens:      int(meta.TotalTokenCount),
	})
	if !ok {
		return
	}
	logx.Debug().
		Str("model", modelName).
		Int("prompt_tokens", cost.Usage.PromptTokens).
		Int("completion_tokens", cost.Usage.CompletionTokens).
		Int("total_tokens", cost.Usage.TotalTokens).
		Bool("known_pricing", cost.KnownPricing).
		Float64("input_cost_usd", cost.InputUSD).
		Float64("output_cost_usd", cost.OutputUSD).
		Float64("total_cost_usd", cost.TotalUSD).
		Msg("LLM usage")
}
