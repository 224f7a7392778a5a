package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/cepclima/server/internal/agent/extract"
	"github.com/cepclima/server/internal/agent/graph/conversations"
	"github.com/cepclima/server/internal/agent/graph/nodes"
	"github.com/cepclima/server/internal/agent/graph/observers"
	"github.com/cepclima/server/internal/agent/graph/tools"
	"github.com/cepclima/server/internal/agent/model"
	logx "github.com/cepclima/server/pkg/logger"
)

// Runner executes the compiled graph for one user turn.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.Reply, error)
}

// Config holds everything needed to compose the full response graph end-to-end.
type Config struct {
	ChatModels       *nodes.ChatModels
	Classifier       nodes.Classifier
	Lookups          tools.Lookups
	Insights         *tools.Insights
	ForecastDays     int
	ResponsePrompt   model.ResponsePromptConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels           *nodes.ChatModels
	MessagesManager      *conversations.MessagesManager
	Classifier           nodes.Classifier
	Lookups              tools.Lookups
	Insights             *tools.Insights
	ForecastDays         int
	ResponsePromptConfig *model.ResponsePromptConfig
	ToolMaxCalls         int
}

// GraphBuilder handles the construction of the conversation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *model.Reply]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *model.Reply]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (*model.Reply, error) {
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return nil, fmt.Errorf("empty message")
	}
	if strings.TrimSpace(in.ConversationID) == "" {
		in.ConversationID = uuid.NewString()
	}

	return r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
}

// BuildResponseGraph composes the MessagesManager, builds the graph, and returns a Runner.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:           cfg.ChatModels,
		MessagesManager:      mm,
		Classifier:           cfg.Classifier,
		Lookups:              cfg.Lookups,
		Insights:             cfg.Insights,
		ForecastDays:         cfg.ForecastDays,
		ResponsePromptConfig: &cfg.ResponsePrompt,
		ToolMaxCalls:         cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Response graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *model.Reply], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.Classifier == nil || config.Lookups == nil {
		return nil, fmt.Errorf("classifier and lookups are required")
	}
	if config.ResponsePromptConfig == nil {
		return nil, fmt.Errorf("response prompt config is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *model.Reply](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools configures the lookup tools and binds them to the response model
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	queryTools := tools.Tolerant(tools.GetQueryTools(b.config.Lookups, b.config.ForecastDays, b.config.Insights))
	toolInfos, err := tools.GetToolInfos(ctx, queryTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindToolsToResponseModel(ctx, toolInfos); err != nil {
		return fmt.Errorf("failed to bind tools to response model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               queryTools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return sanitizeArguments(name, arguments), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	return b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	cfg := b.config
	lookupPost := compose.WithStatePostHandler(nodes.NewLookupPostHandler())

	steps := []func() error{
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeDecide,
				nodes.NewDecideNode(cfg.MessagesManager, cfg.Classifier),
				compose.WithStatePreHandler(nodes.NewDecidePreHandler()),
				compose.WithStatePostHandler(nodes.NewDecidePostHandler()),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeZipLookup, nodes.NewZipLookupNode(cfg.Lookups), lookupPost)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeZipWeather, nodes.NewZipWeatherNode(cfg.Lookups, cfg.ForecastDays), lookupPost)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeWeatherDirect, nodes.NewWeatherDirectNode(cfg.Lookups, cfg.ForecastDays), lookupPost)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeDirectReply, nodes.NewDirectReplyNode(cfg.MessagesManager))
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeResponseAssembler,
				nodes.NewResponseAssemblerNode(cfg.MessagesManager, cfg.ResponsePromptConfig),
			)
		},
		func() error {
			return b.graph.AddChatModelNode(nodes.NodeResponseChatModel,
				cfg.ChatModels.Response,
				compose.WithStatePreHandler(nodes.NewResponseChatModelPreHandler(cfg.ToolMaxCalls)),
				compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(cfg.MessagesManager, cfg.ChatModels)),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeFinalize, nodes.NewFinalizeNode())
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			logx.Error().Err(err).Msg("Error adding graph node")
			return fmt.Errorf("error adding graph node: %w", err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeDecide},
		{nodes.NodeZipLookup, nodes.NodeResponseAssembler},
		{nodes.NodeZipWeather, nodes.NodeResponseAssembler},
		{nodes.NodeWeatherDirect, nodes.NodeResponseAssembler},
		{nodes.NodeResponseAssembler, nodes.NodeResponseChatModel},
		{nodes.NodeToolExecutor, nodes.NodeResponseChatModel},
		{nodes.NodeDirectReply, nodes.NodeFinalize},
		{nodes.NodeFinalize, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	actionBranch := compose.NewGraphBranch(
		nodes.NewActionCondition(),
		map[string]bool{
			nodes.NodeZipLookup:     true,
			nodes.NodeZipWeather:    true,
			nodes.NodeWeatherDirect: true,
			nodes.NodeDirectReply:   true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeDecide, actionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding action branch")
		return fmt.Errorf("error adding action branch: %w", err)
	}

	toolBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			nodes.NodeFinalize:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResponseChatModel, toolBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding tool branch")
		return fmt.Errorf("error adding tool branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *model.Reply], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + nodesMaxToolCalls(b.config.ToolMaxCalls)*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

func nodesMaxToolCalls(n int) int {
	if n <= 0 {
		return nodes.DefaultMaxToolCalls
	}
	return n
}

// sanitizeArguments cleans tool arguments produced by the model. It never
// fails: unparseable input is passed through for the tool to reject.
func sanitizeArguments(name, arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}

	switch name {
	case tools.ToolZipCodeLookup, tools.ToolZipCodeWeather:
		if v, ok := m["cep"]; ok {
			s := strings.TrimSpace(fmt.Sprint(v))
			if zip, ok := extract.NormalizeZipCode(s); ok {
				s = zip
			}
			m["cep"] = s
		}
	case tools.ToolCitySearch:
		if v, ok := m["city_name"]; ok {
			m["city_name"] = strings.Join(strings.Fields(fmt.Sprint(v)), " ")
		}
	case tools.ToolWeatherForecast:
		if n, ok := toInt(m["city_code"]); ok {
			m["city_code"] = n
		}
		if v, ok := m["days"]; ok {
			if n, ok := toInt(v); ok {
				m["days"] = clampInt(n, 1, 6)
			} else {
				delete(m, "days")
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}

func toInt(v any) (int, bool) {
	switch vv := v.(type) {
	case float64:
		return int(vv), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(vv))
		return n, err == nil
	}
	return 0, false
}

// clampInt returns v limited to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
