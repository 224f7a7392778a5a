package graph

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepclima/server/internal/agent/decisor"
	"github.com/cepclima/server/internal/agent/graph/nodes"
	"github.com/cepclima/server/internal/agent/graph/tools"
	"github.com/cepclima/server/internal/agent/model"
	"github.com/cepclima/server/internal/agent/repo"
	errx "github.com/cepclima/server/internal/core/error"
)

type scriptedChatModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	inputs  [][]*schema.Message
	bound   []*schema.ToolInfo
}

func (m *scriptedChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, append([]*schema.Message(nil), input...))
	if len(m.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	out := m.replies[0]
	m.replies = m.replies[1:]
	return out, nil
}

func (m *scriptedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *scriptedChatModel) BindTools(infos []*schema.ToolInfo) error {
	m.bound = infos
	return nil
}

func (m *scriptedChatModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

type stubLookups struct {
	mu       sync.Mutex
	forecast []int
}

var (
	recife   = model.CityLocation{ID: 241, Name: "Recife", State: "PE"}
	paulista = &model.Address{ZipCode: "01310100", State: "SP", City: "São Paulo", Neighborhood: "Bela Vista", Street: "Avenida Paulista"}
)

func (s *stubLookups) LookupZipCode(_ context.Context, cep string) (*model.Address, error) {
	if cep == "01310100" {
		a := *paulista
		return &a, nil
	}
	return nil, errx.NotFound(errx.ResourceCEP)
}

func (s *stubLookups) SearchCities(_ context.Context, name string) ([]model.CityLocation, error) {
	switch name {
	case "Recife":
		return []model.CityLocation{recife}, nil
	case "Bom Jesus":
		return []model.CityLocation{{ID: 10, Name: "Bom Jesus", State: "PI"}, {ID: 11, Name: "Bom Jesus", State: "RS"}}, nil
	case "São Paulo":
		return []model.CityLocation{{ID: 244, Name: "São Paulo", State: "SP"}}, nil
	}
	return nil, nil
}

func (s *stubLookups) Forecast(_ context.Context, code, days int) (*model.Forecast, error) {
	s.mu.Lock()
	s.forecast = append(s.forecast, code, days)
	s.mu.Unlock()
	return &model.Forecast{City: "Recife", State: "PE", Days: []model.DailyForecast{{Date: "2024-06-01", Condition: "c", Min: 23, Max: 29}}}, nil
}

type fixture struct {
	runner  Runner
	chat    *scriptedChatModel
	api     *stubLookups
	history *repo.MemoryConversationRepository
}

func newFixture(t *testing.T, replies ...*schema.Message) *fixture {
	t.Helper()
	api := &stubLookups{}
	chat := &scriptedChatModel{replies: replies}
	history := repo.NewMemoryConversationRepository(time.Minute)

	var conv model.ConversationConfig
	conv.History.MaxTurns = 4
	conv.Tools.MaxCalls = 3

	runner, err := BuildResponseGraph(context.Background(), Config{
		ChatModels:       &nodes.ChatModels{Response: chat, ResponseModelName: "gemini-2.5-flash"},
		Classifier:       decisor.New(decisor.NewFallback(api, time.Second), time.Second),
		Lookups:          api,
		ForecastDays:     4,
		ResponsePrompt:   model.ResponsePromptConfig{AssistantName: "CEP Clima", Language: "português do Brasil"},
		Conversation:     conv,
		ConversationRepo: history,
	})
	require.NoError(t, err)
	return &fixture{runner: runner, chat: chat, api: api, history: history}
}

func TestGraphZipCodeLookup(t *testing.T) {
	f := newFixture(t, schema.AssistantMessage("O CEP 01310-100 é da Avenida Paulista, Bela Vista, São Paulo/SP.", nil))

	reply, err := f.runner.Invoke(context.Background(), model.QueryInput{ConversationID: "c1", Query: "Qual o endereço do CEP 01310-100?"})
	require.NoError(t, err)

	assert.Equal(t, "c1", reply.ConversationID)
	assert.Equal(t, model.ActionConsultZipCode, reply.Classification.Action)
	require.NotNil(t, reply.Lookup)
	require.NotNil(t, reply.Lookup.Address)
	assert.Equal(t, "Avenida Paulista", reply.Lookup.Address.Street)
	assert.Contains(t, reply.Message, "Avenida Paulista")

	require.Equal(t, 1, f.chat.calls())
	system := f.chat.inputs[0][0]
	assert.Equal(t, schema.System, system.Role)
	assert.Contains(t, system.Content, "Bela Vista")
	assert.Len(t, f.chat.bound, 4)

	n, err := f.history.GetMessageCount(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGraphToolRoundTrip(t *testing.T) {
	call := schema.AssistantMessage("", []schema.ToolCall{{
		Type:     "function",
		Function: schema.FunctionCall{Name: tools.ToolWeatherForecast, Arguments: `{"city_code":"241","days":9}`},
	}})
	f := newFixture(t, call, schema.AssistantMessage("Em Recife: mínima de 23°C e máxima de 29°C.", nil))

	reply, err := f.runner.Invoke(context.Background(), model.QueryInput{Query: "Como está o clima em Recife?"})
	require.NoError(t, err)

	assert.NotEmpty(t, reply.ConversationID)
	assert.Equal(t, model.ActionConsultWeatherDirect, reply.Classification.Action)
	assert.Equal(t, "Recife", reply.Classification.ExtractedCity)
	assert.Equal(t, "Em Recife: mínima de 23°C e máxima de 29°C.", reply.Message)

	// lookup workflow, then the tool call with cleaned arguments
	assert.Equal(t, []int{241, 4, 241, 6}, f.api.forecast)

	require.Equal(t, 2, f.chat.calls())
	second := f.chat.inputs[1]
	last := second[len(second)-1]
	assert.Equal(t, schema.Tool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)

	var forecast model.Forecast
	require.NoError(t, json.Unmarshal([]byte(last.Content), &forecast))
	assert.Equal(t, "Recife", forecast.City)
}

func TestGraphDirectReplySkipsModel(t *testing.T) {
	f := newFixture(t)

	reply, err := f.runner.Invoke(context.Background(), model.QueryInput{ConversationID: "c2", Query: "Previsão do tempo"})
	require.NoError(t, err)

	assert.Equal(t, model.ActionRequestLocation, reply.Classification.Action)
	assert.Equal(t, reply.Classification.FriendlyMessage, reply.Message)
	assert.Nil(t, reply.Lookup)
	assert.Zero(t, f.chat.calls())
}

func TestGraphAmbiguousCityListsCandidates(t *testing.T) {
	f := newFixture(t)

	reply, err := f.runner.Invoke(context.Background(), model.QueryInput{Query: "Bom Jesus"})
	require.NoError(t, err)

	assert.Equal(t, model.ActionMultipleCities, reply.Classification.Action)
	assert.Len(t, reply.Classification.FoundCities, 2)
	assert.Contains(t, reply.Message, "Bom Jesus/PI")
	assert.Contains(t, reply.Message, "Bom Jesus/RS")
	assert.Zero(t, f.chat.calls())
}

func TestGraphUnknownZipCodeBecomesNote(t *testing.T) {
	f := newFixture(t, schema.AssistantMessage("Não encontrei esse CEP.", nil))

	reply, err := f.runner.Invoke(context.Background(), model.QueryInput{Query: "CEP 99999-999"})
	require.NoError(t, err)

	assert.Equal(t, model.ActionConsultZipCode, reply.Classification.Action)
	require.NotNil(t, reply.Lookup)
	assert.Nil(t, reply.Lookup.Address)
	assert.Equal(t, []string{errx.UserMessage(errx.NotFound(errx.ResourceCEP))}, reply.Lookup.Notes)
}

func TestGraphRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Invoke(context.Background(), model.QueryInput{Query: "   "})
	assert.Error(t, err)
}

func TestSanitizeArguments(t *testing.T) {
	tests := []struct {
		name, tool, in, want string
	}{
		{"cep normalized", tools.ToolZipCodeLookup, `{"cep":" 01310-100 "}`, `{"cep":"01310100"}`},
		{"cep kept when invalid", tools.ToolZipCodeWeather, `{"cep":"123"}`, `{"cep":"123"}`},
		{"city spaces", tools.ToolCitySearch, `{"city_name":"  Rio   de Janeiro "}`, `{"city_name":"Rio de Janeiro"}`},
		{"days clamped", tools.ToolWeatherForecast, `{"city_code":244,"days":0}`, `{"city_code":244,"days":1}`},
		{"string code", tools.ToolWeatherForecast, `{"city_code":"244","days":"3"}`, `{"city_code":244,"days":3}`},
		{"bad days dropped", tools.ToolWeatherForecast, `{"city_code":244,"days":"muitos"}`, `{"city_code":244}`},
		{"not json", tools.ToolCitySearch, `Recife`, `Recife`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeArguments(tt.tool, tt.in))
		})
	}
}
