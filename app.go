package main

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cepclima/server/internal/agent/brasilapi"
	"github.com/cepclima/server/internal/agent/decisor"
	"github.com/cepclima/server/internal/agent/graph"
	"github.com/cepclima/server/internal/agent/graph/nodes"
	"github.com/cepclima/server/internal/agent/graph/tools"
	"github.com/cepclima/server/internal/agent/llm"
	"github.com/cepclima/server/internal/agent/model"
	"github.com/cepclima/server/internal/agent/repo"
	"github.com/cepclima/server/internal/core"
	"github.com/cepclima/server/internal/server"
	logx "github.com/cepclima/server/pkg/logger"
	pkgredis "github.com/cepclima/server/pkg/redis"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider. Without a key only the deterministic classifier runs.
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	Decisor      model.DecisorConfig
	Response     model.ResponseModelConfig
	Insights     model.InsightsConfig
	Cost         model.CostConfig
	Prompt       model.ResponsePromptConfig
	Conversation model.ConversationConfig
	BrasilAPI    model.BrasilAPIConfig
	Server       server.Config
}

func loadConfig() (*AppConfig, error) {
	// .env is optional outside local runs
	if err := godotenv.Load(".env"); err == nil {
		logx.Debug().Msg("loaded .env")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Env),
		Level:       cfg.LogLevel,
	})
	return &cfg, nil
}

// app holds the wired components shared by every command.
type app struct {
	cfg        *AppConfig
	decisor    *decisor.Decisor
	runner     graph.Runner
	tools      map[string]tool.InvokableTool
	history    model.ConversationRepository
	closeRedis func() error
}

func (a *app) Close() {
	if a.closeRedis != nil {
		if err := a.closeRedis(); err != nil {
			logx.Warn().Err(err).Msg("closing redis")
		}
	}
}

// buildApp wires storage, BrasilAPI, the decisor and, when an API key is set
// and offline is false, the LLM strategies and the response graph.
func buildApp(ctx context.Context, cfg *AppConfig, offline bool) (*app, error) {
	a := &app{cfg: cfg}

	var cache brasilapi.Cache
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialise redis: %w", err)
		}
		a.closeRedis = rdb.Close
		a.history = repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL)
		cache = repo.NewRedisCache(rdb)
		logRedis(rdb)
	} else {
		a.history = repo.NewMemoryConversationRepository(cfg.Conversation.TTL)
		cache = repo.NewMemoryCache()
		logx.Info().Msg("REDIS_URL not set, using in-memory history and cache")
	}

	api := brasilapi.New(cfg.BrasilAPI, brasilapi.WithCache(cache))
	fallback := decisor.NewFallback(api, cfg.Decisor.Timeout)

	if offline || cfg.APIKey == "" {
		if !offline {
			logx.Warn().Msg("GEMINI_API_KEY not set, running with the deterministic classifier only")
		}
		a.decisor = decisor.New(fallback, cfg.Decisor.Timeout)
		if err := a.indexTools(ctx, api, nil); err != nil {
			a.Close()
			return nil, err
		}
		return a, nil
	}

	client, err := llm.NewClient(ctx, llm.ClientConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	if err != nil {
		a.Close()
		return nil, err
	}
	gen := llm.NewStructured(client, cfg.Cost)
	insights := &tools.Insights{Generator: gen, Model: cfg.Insights.Model, Temperature: cfg.Insights.Temperature}
	if err := a.indexTools(ctx, api, insights); err != nil {
		a.Close()
		return nil, err
	}
	a.decisor = decisor.New(fallback, cfg.Decisor.Timeout,
		decisor.NewDecisionStrategy(gen, decisor.LLMConfig{Model: cfg.Decisor.Model, Temperature: cfg.Decisor.Temperature}),
		decisor.NewAnalysisStrategy(gen, decisor.LLMConfig{Model: cfg.Decisor.Model, Temperature: cfg.Decisor.AnalysisTemperature}),
	)

	cms, err := nodes.NewChatModels(ctx, client, &cfg.Response, cfg.Cost)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.runner, err = graph.BuildResponseGraph(ctx, graph.Config{
		ChatModels:       cms,
		Classifier:       a.decisor,
		Lookups:          api,
		Insights:         insights,
		ForecastDays:     api.ForecastDays(),
		ResponsePrompt:   cfg.Prompt,
		Conversation:     cfg.Conversation,
		ConversationRepo: a.history,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build graph: %w", err)
	}

	logx.Info().Strs("strategies", a.decisor.Strategies()).Msg("assistant ready")
	return a, nil
}

// indexTools exposes the query tools over the RPC surface.
func (a *app) indexTools(ctx context.Context, api *brasilapi.Client, insights *tools.Insights) error {
	invokable, err := tools.Invokable(ctx, tools.GetQueryTools(api, api.ForecastDays(), insights))
	if err != nil {
		return err
	}
	a.tools = invokable
	return nil
}

func logRedis(rdb *goredis.Client) {
	opts := rdb.Options()
	logx.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
}
