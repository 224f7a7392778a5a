package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/cepclima/server/internal/agent/model"
	errx "github.com/cepclima/server/internal/core/error"
)

const (
	ToolZipCodeLookup    = "zip_code_lookup"
	ToolCitySearch       = "city_search"
	ToolWeatherForecast  = "weather_forecast"
	ToolZipCodeWeather   = "zip_code_weather"
	ToolLocationInsights = "location_insights"
)

// Lookups is the BrasilAPI surface the tools and lookup workflows use.
type Lookups interface {
	LookupZipCode(ctx context.Context, cep string) (*model.Address, error)
	SearchCities(ctx context.Context, name string) ([]model.CityLocation, error)
	Forecast(ctx context.Context, cityCode, days int) (*model.Forecast, error)
}

// GetQueryTools returns every lookup tool, in a stable order. The
// location_insights tool is added only when insights has a generator.
func GetQueryTools(api Lookups, defaultDays int, insights *Insights) []tool.BaseTool {
	out := []tool.BaseTool{
		createZipCodeLookupTool(api),
		createCitySearchTool(api),
		createWeatherForecastTool(api, defaultDays),
		createZipCodeWeatherTool(api, defaultDays),
	}
	if insights != nil && insights.Generator != nil {
		out = append(out, createLocationInsightsTool(api, defaultDays, insights))
	}
	return out
}

// GetToolInfos collects the ToolInfo of each tool for model binding.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Invokable indexes the invokable tools by name.
func Invokable(ctx context.Context, tools []tool.BaseTool) (map[string]tool.InvokableTool, error) {
	out := make(map[string]tool.InvokableTool, len(tools))
	for _, t := range tools {
		it, ok := t.(tool.InvokableTool)
		if !ok {
			continue
		}
		info, err := it.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		out[info.Name] = it
	}
	return out, nil
}

// Tolerant wraps tools so lookup failures reach the model as a JSON result
// instead of aborting the graph run.
func Tolerant(tools []tool.BaseTool) []tool.BaseTool {
	out := make([]tool.BaseTool, 0, len(tools))
	for _, t := range tools {
		if it, ok := t.(tool.InvokableTool); ok {
			out = append(out, tolerantTool{it})
			continue
		}
		out = append(out, t)
	}
	return out
}

type tolerantTool struct {
	tool.InvokableTool
}

type toolError struct {
	Error   errx.Code `json:"error"`
	Message string    `json:"message"`
}

func (t tolerantTool) InvokableRun(ctx context.Context, arguments string, opts ...tool.Option) (string, error) {
	out, err := t.InvokableTool.InvokableRun(ctx, arguments, opts...)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	b, mErr := json.Marshal(toolError{Error: errx.CodeOf(err), Message: errx.UserMessage(err)})
	if mErr != nil {
		return "", err
	}
	return string(b), nil
}
