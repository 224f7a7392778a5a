package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/cepclima/server/internal/agent/llm"
	"github.com/cepclima/server/internal/agent/model"
	logx "github.com/cepclima/server/pkg/logger"
)

const insightsTimeout = 30 * time.Second

// Insights enables the location_insights tool.
type Insights struct {
	Generator   llm.ObjectGenerator
	Model       string
	Temperature float32
}

const insightsPersona = "Você é um especialista em análise climática e geográfica brasileira. Forneça análises precisas, úteis e baseadas em dados reais."

const insightsPrompt = `Analise os seguintes dados de localização e clima para fornecer insights úteis:

DADOS DA LOCALIZAÇÃO:
- CEP: {{.ZipCode}}
- Estado: {{.State}}
- Cidade: {{.City}}
- Bairro: {{.Neighborhood}}
- Rua: {{.Street}}
{{if .Days}}
DADOS DO CLIMA ({{len .Days}} dias):
{{range .Days}}
Dia {{.N}} ({{.Date}}):
- Condição: {{.Condition}}
- Temperatura: {{.Min}}°C a {{.Max}}°C
- Índice UV: {{.UV}}
{{end}}
MÉTRICAS CALCULADAS:
- Temperatura média mínima: {{.Metrics.AvgMin}}°C
- Temperatura média máxima: {{.Metrics.AvgMax}}°C
- Variação média: {{.Metrics.AvgRange}}°C
- Índice UV máximo: {{.Metrics.MaxUVIndex}}
- Dias analisados: {{.Metrics.Days}}

Por favor, forneça uma análise completa e útil baseada nestes dados, incluindo:
1. Resumo da localidade e suas características
2. Análise do clima e padrões observados
3. Recomendações práticas para moradores ou visitantes
4. Curiosidades interessantes sobre a região
5. Alertas sobre condições climáticas (se aplicável)
6. Insights técnicos sobre o clima e qualidade ambiental

Seja específico, útil e mantenha um tom amigável e informativo.
{{- else}}
DADOS DO CLIMA: Não disponíveis para análise
{{- end}}`

var insightsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"analysis": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"locationSummary":        {Type: genai.TypeString, Description: "Breve descrição da localidade e suas características principais"},
				"climateCharacteristics": {Type: genai.TypeString, Description: "Análise das características climáticas da região"},
				"recommendations":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Lista de recomendações práticas baseadas no clima e localização"},
				"curiosities":            {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Curiosidades interessantes sobre a região ou clima"},
				"alerts":                 {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Alertas importantes sobre condições climáticas extremas (se houver)"},
			},
			Required: []string{"locationSummary", "climateCharacteristics", "recommendations", "curiosities"},
		},
		"insights": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"climateType":          {Type: genai.TypeString, Description: "Classificação do tipo de clima predominante"},
				"uvIntensity":          {Type: genai.TypeString, Description: "Avaliação da intensidade UV (baixa, moderada, alta, muito alta)"},
				"temperatureVariation": {Type: genai.TypeString, Description: "Análise da variação de temperatura (estável, variável, extrema)"},
				"estimatedAirQuality":  {Type: genai.TypeString, Description: "Estimativa da qualidade do ar baseada na localização e condições"},
			},
			Required: []string{"climateType", "uvIntensity", "temperatureVariation", "estimatedAirQuality"},
		},
	},
	Required: []string{"analysis", "insights"},
}

type insightsObject struct {
	Analysis model.LocationAnalysis `json:"analysis"`
	Insights model.ClimateInsights  `json:"insights"`
}

type insightDay struct {
	N         int
	Date      string
	Condition string
	Min       int
	Max       int
	UV        float64
}

func createLocationInsightsTool(api Lookups, defaultDays int, cfg *Insights) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolLocationInsights,
			Desc: "Analisa com IA o endereço e a previsão do tempo de um CEP: resumo da localidade, características do clima, recomendações, curiosidades e alertas. Use quando o usuário pedir dicas, recomendações ou uma análise do clima de um CEP.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"cep": {
					Type:     schema.String,
					Desc:     "CEP com 8 dígitos, com ou sem hífen.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *ZipCodeInput) (*model.LocationInsights, error) {
			return LocationInsights(ctx, api, cfg, in.CEP, defaultDays)
		},
	)
}

// LocationInsights resolves a CEP and its forecast, then asks the model for a
// structured analysis. A failed generation degrades to a basic analysis; a
// failed address lookup is returned as is.
func LocationInsights(ctx context.Context, api Lookups, cfg *Insights, cep string, days int) (*model.LocationInsights, error) {
	lookup, err := ZipCodeWeather(ctx, api, cep, days)
	if err != nil {
		return nil, err
	}

	var forecast []model.DailyForecast
	if lookup.Forecast != nil {
		forecast = lookup.Forecast.Days
	}
	out := &model.LocationInsights{
		Address: lookup.Address,
		City:    lookup.City,
		Metrics: climateMetrics(forecast),
		Notes:   lookup.Notes,
	}

	obj, err := generateInsights(ctx, cfg, lookup.Address, forecast, out.Metrics)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logx.Warn().Err(err).Str("cep", lookup.Address.ZipCode).Msg("insights generation failed, using basic analysis")
		obj = basicInsights(lookup.Address, len(forecast) > 0)
	}
	if obj.Analysis.Alerts == nil {
		obj.Analysis.Alerts = []string{}
	}
	out.Analysis, out.Insights = obj.Analysis, obj.Insights
	return out, nil
}

func generateInsights(ctx context.Context, cfg *Insights, addr *model.Address, forecast []model.DailyForecast, metrics *model.ClimateMetrics) (insightsObject, error) {
	ctx, cancel := context.WithTimeout(ctx, insightsTimeout)
	defer cancel()

	days := make([]insightDay, len(forecast))
	for i, d := range forecast {
		days[i] = insightDay{N: i + 1, Date: d.Date, Condition: d.ConditionDescription, Min: d.Min, Max: d.Max, UV: d.UVIndex}
	}

	// Rendered through the Eino prompt component so prompt callbacks fire
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(insightsPersona),
		schema.UserMessage(insightsPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"ZipCode":      addr.ZipCode,
		"State":        addr.State,
		"City":         addr.City,
		"Neighborhood": addr.Neighborhood,
		"Street":       addr.Street,
		"Days":         days,
		"Metrics":      metrics,
	})
	if err != nil {
		return insightsObject{}, fmt.Errorf("insights prompt render: %w", err)
	}

	raw, err := cfg.Generator.GenerateObject(ctx, llm.ObjectRequest{
		Model:       cfg.Model,
		Messages:    msgs,
		Temperature: cfg.Temperature,
		Schema:      insightsSchema,
	})
	if err != nil {
		return insightsObject{}, err
	}

	var obj insightsObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return insightsObject{}, fmt.Errorf("decode insights: %w", err)
	}
	if strings.TrimSpace(obj.Analysis.LocationSummary) == "" {
		return insightsObject{}, fmt.Errorf("insights without summary: %w", llm.ErrNoObject)
	}
	return obj, nil
}

// climateMetrics averages the forecast; nil without forecast days.
func climateMetrics(days []model.DailyForecast) *model.ClimateMetrics {
	if len(days) == 0 {
		return nil
	}
	var sumMin, sumMax, maxUV float64
	for i, d := range days {
		sumMin += float64(d.Min)
		sumMax += float64(d.Max)
		if i == 0 || d.UVIndex > maxUV {
			maxUV = d.UVIndex
		}
	}
	n := float64(len(days))
	avgMin, avgMax := sumMin/n, sumMax/n
	return &model.ClimateMetrics{
		AvgMin:     int(math.Round(avgMin)),
		AvgMax:     int(math.Round(avgMax)),
		AvgRange:   int(math.Round(avgMax - avgMin)),
		MaxUVIndex: maxUV,
		Days:       len(days),
	}
}

func basicInsights(addr *model.Address, hasForecast bool) insightsObject {
	climate := "Dados climáticos não disponíveis"
	if hasForecast {
		climate = "Dados climáticos disponíveis para análise"
	}
	return insightsObject{
		Analysis: model.LocationAnalysis{
			LocationSummary:        fmt.Sprintf("Localidade: %s, %s", addr.City, addr.State),
			ClimateCharacteristics: climate,
			Recommendations: []string{
				"Consulte dados climáticos atualizados antes de planejar atividades ao ar livre",
				"Mantenha-se informado sobre as condições meteorológicas locais",
			},
			Curiosities: []string{
				fmt.Sprintf("%s está localizada no estado de %s", addr.City, addr.State),
				"O clima brasileiro é conhecido por sua diversidade",
			},
			Alerts: []string{},
		},
		Insights: model.ClimateInsights{
			ClimateType:          "Não determinado",
			UVIntensity:          "Não determinado",
			TemperatureVariation: "Não determinado",
			EstimatedAirQuality:  "Não determinado",
		},
	}
}
