package prompts

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/cepclima/server/internal/agent/graph/tools"
	"github.com/cepclima/server/internal/agent/model"
)

//go:embed template/response_prompt.txt
var coreSystemPrompt string

// RenderResponseSystem renders the dynamic Response system prompt and triggers prompt callbacks.
func RenderResponseSystem(ctx context.Context, config model.ResponsePromptConfig, data model.ResponseData) (string, error) {
	lookupJSON := ""
	if data.Lookup != nil {
		b, err := json.MarshalIndent(data.Lookup, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal lookup: %w", err)
		}
		lookupJSON = string(b)
	}

	// Render via Eino prompt component (Go template) to both format and emit callbacks
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"AssistantName":      config.AssistantName,
		"Language":           config.Language,
		"Query":              data.Query,
		"Action":             data.Classification.Action.String(),
		"FriendlyMessage":    data.Classification.FriendlyMessage,
		"LookupJSON":         lookupJSON,
		"ZipCodeTool":        tools.ToolZipCodeLookup,
		"CitySearchTool":     tools.ToolCitySearch,
		"ForecastTool":       tools.ToolWeatherForecast,
		"ZipCodeWeatherTool": tools.ToolZipCodeWeather,
		"InsightsTool":       tools.ToolLocationInsights,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}
