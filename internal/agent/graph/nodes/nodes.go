package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/cepclima/server/internal/agent/graph/conversations"
	"github.com/cepclima/server/internal/agent/graph/prompts"
	"github.com/cepclima/server/internal/agent/graph/tools"
	"github.com/cepclima/server/internal/agent/model"
	errx "github.com/cepclima/server/internal/core/error"
	logx "github.com/cepclima/server/pkg/logger"
)

// Classifier is the intent decisor as seen by the graph.
type Classifier interface {
	Classify(ctx context.Context, input string) model.Classification
}

// NewDecidePreHandler resets the per-query state.
func NewDecidePreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		s.ConversationID = in.ConversationID
		s.Query = in.Query
		s.Classification = nil
		s.Lookup = nil
		s.History = nil
		// Reset tool call counter and limit flag for each new query
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewDecideNode saves the user message and classifies it.
func NewDecideNode(mm *conversations.MessagesManager, classifier Classifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) (model.Classification, error) {
		if err := mm.SaveQuery(ctx, input.ConversationID, input.Query); err != nil {
			return model.Classification{}, fmt.Errorf("save user message: %w", err)
		}
		return classifier.Classify(ctx, input.Query), nil
	})
}

// NewDecidePostHandler stores the classification in state.
func NewDecidePostHandler() func(context.Context, model.Classification, *model.AppState) (model.Classification, error) {
	return func(ctx context.Context, out model.Classification, state *model.AppState) (model.Classification, error) {
		c := out
		state.Classification = &c
		logx.Debug().
			Str("conversation_id", state.ConversationID).
			Str("action", out.Action.String()).
			Str("zip_code", out.ExtractedZipCode).
			Str("city", out.ExtractedCity).
			Msg("Query classified")
		return out, nil
	}
}

// NewActionCondition routes lookup actions to their workflow and everything
// else to the direct reply.
func NewActionCondition() func(context.Context, model.Classification) (string, error) {
	return func(ctx context.Context, c model.Classification) (string, error) {
		switch c.Action {
		case model.ActionConsultZipCode:
			return NodeZipLookup, nil
		case model.ActionConsultZipCodeAndWeather:
			return NodeZipWeather, nil
		case model.ActionConsultWeatherDirect:
			return NodeWeatherDirect, nil
		default:
			return NodeDirectReply, nil
		}
	}
}

func NewZipLookupNode(api tools.Lookups) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, c model.Classification) (*model.Lookup, error) {
		lookup, err := tools.ZipCodeLookup(ctx, api, c.ExtractedZipCode)
		return degrade(ctx, NodeZipLookup, lookup, err)
	})
}

func NewZipWeatherNode(api tools.Lookups, days int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, c model.Classification) (*model.Lookup, error) {
		lookup, err := tools.ZipCodeWeather(ctx, api, c.ExtractedZipCode, days)
		return degrade(ctx, NodeZipWeather, lookup, err)
	})
}

// NewWeatherDirectNode looks the city up and, when it turns out missing or
// ambiguous, rewrites the classification to say so.
func NewWeatherDirectNode(api tools.Lookups, days int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, c model.Classification) (*model.Lookup, error) {
		lookup, err := tools.WeatherByCity(ctx, api, c.ExtractedCity, days)

		var revised *model.Classification
		switch {
		case errx.IsNotFound(err) || errx.CodeOf(err) == errx.CodeLocalidadeInvalid:
			revised = &model.Classification{
				Action:          model.ActionCityNotFound,
				ExtractedCity:   c.ExtractedCity,
				Justification:   "Cidade não encontrada na busca de localidades",
				FriendlyMessage: fmt.Sprintf("Não encontrei a cidade \"%s\". Pode verificar o nome ou informar um CEP? 🤔", c.ExtractedCity),
			}
		case err == nil && len(lookup.Candidates) > 1:
			revised = &model.Classification{
				Action:          model.ActionMultipleCities,
				ExtractedCity:   c.ExtractedCity,
				Justification:   fmt.Sprintf("Encontradas %d cidades com o nome \"%s\"", len(lookup.Candidates), c.ExtractedCity),
				FriendlyMessage: fmt.Sprintf("Encontrei %d cidades com o nome \"%s\". Qual delas você quer consultar?", len(lookup.Candidates), c.ExtractedCity),
				FoundCities:     lookup.Candidates,
			}
		}
		if revised != nil {
			normalized := revised.Normalize()
			if pErr := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
				state.Classification = &normalized
				return nil
			}); pErr != nil {
				return nil, fmt.Errorf("failed to access state: %w", pErr)
			}
		}

		return degrade(ctx, NodeWeatherDirect, lookup, err)
	})
}

// NewLookupPostHandler stores the lookup in state.
func NewLookupPostHandler() func(context.Context, *model.Lookup, *model.AppState) (*model.Lookup, error) {
	return func(ctx context.Context, out *model.Lookup, state *model.AppState) (*model.Lookup, error) {
		state.Lookup = out
		return out, nil
	}
}

// NewDirectReplyNode answers without the response model: clarification
// requests, out-of-scope notices and city disambiguation.
func NewDirectReplyNode(mm *conversations.MessagesManager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, c model.Classification) (*schema.Message, error) {
		var conversationID string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			conversationID = state.ConversationID
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		content := directReplyText(c)
		if err := mm.SaveResponse(ctx, conversationID, content); err != nil {
			logx.Error().Err(err).Str("conversation_id", conversationID).Msg("Error saving direct reply")
		}
		return schema.AssistantMessage(content, nil), nil
	})
}

// NewResponseAssemblerNode creates the ResponseAssembler node for building response context
func NewResponseAssemblerNode(
	mm *conversations.MessagesManager,
	responsePromptConfig *model.ResponsePromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, lookup *model.Lookup) ([]*schema.Message, error) {
		var data model.ResponseData
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			if state.Classification == nil {
				return fmt.Errorf("missing classification in state")
			}
			data = model.ResponseData{
				Query:          state.Query,
				Classification: *state.Classification,
				Lookup:         lookup,
				ConversationID: state.ConversationID,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		respSysPrompt, err := prompts.RenderResponseSystem(ctx, *responsePromptConfig, data)
		if err != nil {
			return nil, fmt.Errorf("generate response prompt: %w", err)
		}

		messages, err := mm.BuildResponseContext(ctx, data.ConversationID, respSysPrompt)
		if err != nil {
			return nil, fmt.Errorf("build response context: %w", err)
		}
		return messages, nil
	})
}

// NewResponseChatModelPreHandler creates the pre-handler for ResponseChatModel node
func NewResponseChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Tool results must carry the id of the call they answer
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			state.History = append(state.History, schema.SystemMessage(fmt.Sprintf(
				"AVISO DO SISTEMA: o limite de chamadas de ferramentas (%d) foi atingido. "+
					"Responda agora com as informações já obtidas e diga ao usuário o que não foi possível consultar.",
				maxToolCalls,
			)))
		}

		return state.History, nil
	}
}

// NewResponseChatModelPostHandler creates the post-handler for ResponseChatModel node
func NewResponseChatModelPostHandler(
	mm *conversations.MessagesManager,
	cms *ChatModels,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("response model returned no message")
		}
		recordUsage(out, state, NodeResponseChatModel, cms.Cost, cms.ResponseModelName)

		// Some providers omit tool call ids
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		}

		// Persist only final answers
		if out.Role == schema.Assistant && (len(out.ToolCalls) == 0 || state.ToolCallLimitReached) && strings.TrimSpace(out.Content) != "" {
			if err := mm.SaveResponse(ctx, state.ConversationID, out.Content); err != nil {
				logx.Error().
					Str("conversation_id", state.ConversationID).
					Err(err).
					Msg("Error saving assistant response")
			}
		}

		return out, nil
	}
}

// NewToolExecutorCondition creates the condition function for tool execution routing
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		}); err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - finalizing")
			return NodeFinalize, nil
		}
		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		return NodeFinalize, nil
	}
}

// NewToolExecutorPreHandler creates the pre-handler for ToolExecutor node
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("conversation_id", state.ConversationID).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("conversation_id", state.ConversationID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}
		return in, nil
	}
}

// NewFinalizeNode assembles the Reply from the final message and state.
func NewFinalizeNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (*model.Reply, error) {
		reply := &model.Reply{}
		if msg != nil {
			reply.Message = strings.TrimSpace(msg.Content)
		}
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			reply.ConversationID = state.ConversationID
			reply.Lookup = state.Lookup
			reply.CostUSD = state.TotalCostUSD
			if state.Classification != nil {
				reply.Classification = *state.Classification
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if reply.Message == "" {
			reply.Message = reply.Classification.FriendlyMessage
		}
		return reply, nil
	})
}
