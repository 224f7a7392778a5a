package model

import (
	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// Gemini text pricing per 1M tokens (standard tier).
var defaultPricing = map[string]Pricing{
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.0-flash":      {InputPerM: 0.10, OutputPerM: 0.40},
}

// CostConfig switches token cost accounting for every Gemini call: the
// decisor's structured generations, location insights and the response model.
type CostConfig struct {
	Logging bool `envconfig:"RESPONSE_COST_LOGGING" default:"true"`
}

// CostEnabled reports whether usage is priced, logged and added to replies.
func (c CostConfig) CostEnabled() bool {
	return c.Logging
}

// Cost is the priced usage of one model call.
type Cost struct {
	Model        string
	Usage        schema.TokenUsage
	InputUSD     float64
	OutputUSD    float64
	TotalUSD     float64
	KnownPricing bool
}

// Estimate prices usage for modelName. It reports false when accounting is
// switched off or there is no usage to price.
func (c CostConfig) Estimate(modelName string, usage *schema.TokenUsage) (Cost, bool) {
	if !c.CostEnabled() || usage == nil {
		return Cost{}, false
	}
	p, known := defaultPricing[modelName]
	in, out, total := ComputeCost(usage, p)
	return Cost{
		Model:        modelName,
		Usage:        *usage,
		InputUSD:     in,
		OutputUSD:    out,
		TotalUSD:     total,
		KnownPricing: known,
	}, true
}

// ResolvePricing returns the pricing for a model, zero when unknown.
func ResolvePricing(model string) Pricing {
	return defaultPricing[model]
}

// ComputeCost converts token usage to USD cost using per-1M Pricing.
func ComputeCost(usage *schema.TokenUsage, p Pricing) (inputCost, outputCost, total float64) {
	if usage == nil {
		return 0, 0, 0
	}
	inputCost = p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	outputCost = p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	total = inputCost + outputCost
	return
}
