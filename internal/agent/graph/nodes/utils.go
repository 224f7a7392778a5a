package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/cepclima/server/internal/agent/model"
	errx "github.com/cepclima/server/internal/core/error"
	logx "github.com/cepclima/server/pkg/logger"
)

const DefaultMaxToolCalls = 10

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit evaluates whether another tool call would exceed the
// limit and, if so, marks the state accordingly. Returns true when marked now.
func checkAndMarkToolLimit(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !state.ToolCallLimitReached && state.ToolCallCount >= max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// incrementToolCallAndCheck increments the count and marks the state if it
// exceeds the limit after incrementing. Returns true when exceeded.
func incrementToolCallAndCheck(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount++
	if state.ToolCallCount > max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// recordUsage prices a model response, attaches the cost to Extra and adds
// it to the running total.
func recordUsage(out *schema.Message, state *model.AppState, node string, cost model.CostConfig, modelName string) {
	if out == nil || out.ResponseMeta == nil {
		return
	}
	c, ok := cost.Estimate(modelName, out.ResponseMeta.Usage)
	if !ok {
		return
	}
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     c.Usage.PromptTokens,
		"completion_tokens": c.Usage.CompletionTokens,
		"total_tokens":      c.Usage.TotalTokens,
		"input_cost":        c.InputUSD,
		"output_cost":       c.OutputUSD,
		"total_cost":        c.TotalUSD,
	}
	logx.Debug().
		Str("conversation_id", state.ConversationID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", c.Usage.PromptTokens).
		Int("completion_tokens", c.Usage.CompletionTokens).
		Float64("total_cost_usd", c.TotalUSD).
		Msg("LLM usage")

	state.TotalCostUSD += c.TotalUSD
	out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
}

// degrade turns a failed lookup into a lookup carrying the user-facing
// reason, so the response model can still explain what happened.
func degrade(ctx context.Context, node string, lookup *model.Lookup, err error) (*model.Lookup, error) {
	if err == nil {
		return lookup, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	logx.Warn().Err(err).Str("node", node).Str("code", string(errx.CodeOf(err))).Msg("lookup failed, answering with a note")
	return &model.Lookup{Notes: []string{errx.UserMessage(err)}}, nil
}

// directReplyText is the canned answer for actions that need no lookup.
func directReplyText(c model.Classification) string {
	msg := strings.TrimSpace(c.FriendlyMessage)
	if c.Action != model.ActionMultipleCities || len(c.FoundCities) == 0 {
		return msg
	}

	var b strings.Builder
	b.WriteString(msg)
	for _, city := range c.FoundCities {
		fmt.Fprintf(&b, "\n- %s/%s", city.Name, city.State)
	}
	return b.String()
}
