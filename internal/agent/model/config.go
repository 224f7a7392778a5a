package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL     time.Duration `envconfig:"CONVERSATION_TTL" default:"30m"`
	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"6"`
	}
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"6"`
	}
}

// DecisorConfig drives both structured-generation attempts.
type DecisorConfig struct {
	Model               string        `envconfig:"DECISOR_MODEL" default:"gemini-2.5-flash-lite"`
	Temperature         float32       `envconfig:"DECISOR_TEMPERATURE" default:"0.3"`
	AnalysisTemperature float32       `envconfig:"DECISOR_ANALYSIS_TEMPERATURE" default:"0.1"`
	Timeout             time.Duration `envconfig:"DECISOR_TIMEOUT" default:"30s"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type ResponsePromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"CEP Clima"`
	Language      string `envconfig:"PROMPT_LANGUAGE" default:"português do Brasil"`
}

type BrasilAPIConfig struct {
	BaseURL      string        `envconfig:"BRASIL_API_BASE_URL" default:"https://brasilapi.com.br/api"`
	Timeout      time.Duration `envconfig:"BRASIL_API_TIMEOUT" default:"30s"`
	UserAgent    string        `envconfig:"BRASIL_API_USER_AGENT" default:"cepclima/1.0"`
	ForecastDays int           `envconfig:"BRASIL_API_FORECAST_DAYS" default:"4"`
	CacheTTL     struct {
		ZipCode  time.Duration `envconfig:"BRASIL_API_CACHE_TTL_CEP" default:"24h"`
		City     time.Duration `envconfig:"BRASIL_API_CACHE_TTL_CITY" default:"24h"`
		Forecast time.Duration `envconfig:"BRASIL_API_CACHE_TTL_FORECAST" default:"30m"`
	}
}
