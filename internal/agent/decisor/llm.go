package decisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/cepclima/server/internal/agent/extract"
	"github.com/cepclima/server/internal/agent/graph/prompts"
	"github.com/cepclima/server/internal/agent/llm"
	"github.com/cepclima/server/internal/agent/model"
)

// analysisActions are the actions the second schema may recommend.
var analysisActions = []model.Action{
	model.ActionConsultZipCode,
	model.ActionConsultWeatherDirect,
	model.ActionConsultZipCodeAndWeather,
	model.ActionRequestZipCode,
	model.ActionRequestLocation,
	model.ActionOutOfScope,
}

var decisionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"action": {
			Type:        genai.TypeString,
			Enum:        actionNames(model.PrimaryActions),
			Description: "CONSULT_ZIP_CODE para apenas consultar CEP, CONSULT_ZIP_CODE_AND_WEATHER para CEP e previsão do tempo, CONSULT_WEATHER_DIRECT para previsão diretamente por cidade",
		},
		"extractedZipCode": {Type: genai.TypeString, Description: "CEP extraído da entrada, 8 dígitos sem hífen"},
		"extractedCity":    {Type: genai.TypeString, Description: "Cidade extraída da entrada, somente o nome"},
		"justification":    {Type: genai.TypeString, Description: "Justificativa técnica para a decisão"},
		"friendlyMessage":  {Type: genai.TypeString, Description: "Mensagem amigável explicando o que será feito"},
		"needsZipCode":     {Type: genai.TypeBoolean, Description: "Se a consulta precisa de um CEP válido"},
		"canFallback":      {Type: genai.TypeBoolean, Description: "Se pode usar fallback quando CEP/cidade não for encontrado"},
	},
	Required: []string{"action", "justification", "friendlyMessage", "needsZipCode", "canFallback"},
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"queryType": {
			Type:        genai.TypeString,
			Enum:        []string{"ZIP_CODE", "WEATHER", "ZIP_CODE_AND_WEATHER", "OUT_OF_SCOPE"},
			Description: "Tipo de consulta identificada",
		},
		"identifiedZipCode": {Type: genai.TypeString, Description: "CEP extraído da entrada (se houver)"},
		"identifiedCity":    {Type: genai.TypeString, Description: "Cidade extraída da entrada (se houver)"},
		"recommendedAction": {
			Type:        genai.TypeString,
			Enum:        actionNames(analysisActions),
			Description: "Ação recomendada baseada na análise",
		},
		"justification":   {Type: genai.TypeString, Description: "Justificativa da análise"},
		"friendlyMessage": {Type: genai.TypeString, Description: "Mensagem amigável para o usuário"},
	},
	Required: []string{"queryType", "recommendedAction", "justification", "friendlyMessage"},
}

type decisionObject struct {
	Action           string `json:"action"`
	ExtractedZipCode string `json:"extractedZipCode"`
	ExtractedCity    string `json:"extractedCity"`
	Justification    string `json:"justification"`
	FriendlyMessage  string `json:"friendlyMessage"`
	NeedsZipCode     bool   `json:"needsZipCode"`
	CanFallback      bool   `json:"canFallback"`
}

type analysisObject struct {
	QueryType         string `json:"queryType"`
	IdentifiedZipCode string `json:"identifiedZipCode"`
	IdentifiedCity    string `json:"identifiedCity"`
	RecommendedAction string `json:"recommendedAction"`
	Justification     string `json:"justification"`
	FriendlyMessage   string `json:"friendlyMessage"`
}

// LLMConfig configures an LLM-backed strategy.
type LLMConfig struct {
	Model       string
	Temperature float32
}

type llmStrategy struct {
	name    string
	gen     llm.ObjectGenerator
	cfg     LLMConfig
	schema  *genai.Schema
	allowed []model.Action
	render  func(ctx context.Context, input string) ([]*schema.Message, error)
	decode  func(raw json.RawMessage) (model.Classification, error)
}

// NewDecisionStrategy is the primary attempt, restricted to the three lookup
// actions.
func NewDecisionStrategy(gen llm.ObjectGenerator, cfg LLMConfig) Strategy {
	return &llmStrategy{
		name:    "decision",
		gen:     gen,
		cfg:     cfg,
		schema:  decisionSchema,
		allowed: model.PrimaryActions,
		render:  prompts.RenderDecision,
		decode:  decodeDecision,
	}
}

// NewAnalysisStrategy is the second attempt with the broader action set.
func NewAnalysisStrategy(gen llm.ObjectGenerator, cfg LLMConfig) Strategy {
	return &llmStrategy{
		name:    "analysis",
		gen:     gen,
		cfg:     cfg,
		schema:  analysisSchema,
		allowed: analysisActions,
		render:  prompts.RenderAnalysis,
		decode:  decodeAnalysis,
	}
}

func (s *llmStrategy) Name() string {
	return s.name
}

func (s *llmStrategy) Classify(ctx context.Context, input string) (model.Classification, error) {
	msgs, err := s.render(ctx, input)
	if err != nil {
		return model.Classification{}, err
	}

	raw, err := s.gen.GenerateObject(ctx, llm.ObjectRequest{
		Model:       s.cfg.Model,
		Messages:    msgs,
		Temperature: s.cfg.Temperature,
		Schema:      s.schema,
	})
	if err != nil {
		return model.Classification{}, err
	}

	c, err := s.decode(raw)
	if err != nil {
		return model.Classification{}, err
	}
	return validate(c, s.allowed)
}

func decodeDecision(raw json.RawMessage) (model.Classification, error) {
	var obj decisionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	action, err := model.ParseAction(obj.Action)
	if err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	return model.Classification{
		Action:           action,
		ExtractedZipCode: obj.ExtractedZipCode,
		ExtractedCity:    strings.TrimSpace(obj.ExtractedCity),
		Justification:    obj.Justification,
		FriendlyMessage:  obj.FriendlyMessage,
	}, nil
}

func decodeAnalysis(raw json.RawMessage) (model.Classification, error) {
	var obj analysisObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	action, err := model.ParseAction(obj.RecommendedAction)
	if err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	return model.Classification{
		Action:           action,
		ExtractedZipCode: obj.IdentifiedZipCode,
		ExtractedCity:    strings.TrimSpace(obj.IdentifiedCity),
		Justification:    obj.Justification,
		FriendlyMessage:  obj.FriendlyMessage,
	}, nil
}

// validate enforces the action contract on an LLM result, then runs the
// city sanity check.
func validate(c model.Classification, allowed []model.Action) (model.Classification, error) {
	if !contains(allowed, c.Action) {
		return c, fmt.Errorf("%w: action %s not allowed here", ErrInvalidShape, c.Action)
	}

	if c.Action.NeedsZipCode() {
		zip, ok := extract.NormalizeZipCode(c.ExtractedZipCode)
		if !ok {
			return c, fmt.Errorf("%w: %s without an 8-digit CEP (%q)", ErrInvalidShape, c.Action, c.ExtractedZipCode)
		}
		c.ExtractedZipCode = zip
	}
	if c.Action == model.ActionConsultWeatherDirect && c.ExtractedCity == "" {
		return c, fmt.Errorf("%w: %s without a city", ErrInvalidShape, c.Action)
	}
	if strings.TrimSpace(c.FriendlyMessage) == "" {
		return c, fmt.Errorf("%w: empty friendly message", ErrInvalidShape)
	}

	if c.ExtractedCity != "" && !extract.IsValidCityName(c.ExtractedCity) {
		return c, fmt.Errorf("%w: %q", ErrUntrustedExtraction, c.ExtractedCity)
	}
	return c, nil
}

func actionNames(actions []model.Action) []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return names
}

func contains(actions []model.Action, a model.Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
