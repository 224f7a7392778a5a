package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/cepclima/server/internal/agent/model"
)

type CitySearchInput struct {
	CityName string `json:"city_name"`
}

type CitySearchOutput struct {
	Cities []model.CityLocation `json:"cities"`
}

type ForecastInput struct {
	CityCode int `json:"city_code"`
	Days     int `json:"days,omitempty"`
}

func createCitySearchTool(api Lookups) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCitySearch,
			Desc: "Busca cidades brasileiras pelo nome na base do CPTEC. Retorna id (código CPTEC), nome e estado de cada cidade encontrada.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"city_name": {
					Type:     schema.String,
					Desc:     "Nome da cidade, sem preposições (ex.: São Paulo).",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *CitySearchInput) (*CitySearchOutput, error) {
			cities, err := api.SearchCities(ctx, in.CityName)
			if err != nil {
				return nil, err
			}
			return &CitySearchOutput{Cities: cities}, nil
		},
	)
}

func createWeatherForecastTool(api Lookups, defaultDays int) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolWeatherForecast,
			Desc: "Previsão do tempo (condição, mínima, máxima, índice UV) para uma cidade a partir do código CPTEC obtido em city_search.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"city_code": {
					Type:     schema.Integer,
					Desc:     "Código CPTEC da cidade (campo id retornado por city_search).",
					Required: true,
				},
				"days": {
					Type: schema.Integer,
					Desc: "Quantidade de dias de previsão, de 1 a 6.",
				},
			}),
		},
		func(ctx context.Context, in *ForecastInput) (*model.Forecast, error) {
			days := in.Days
			if days == 0 {
				days = defaultDays
			}
			return api.Forecast(ctx, in.CityCode, days)
		},
	)
}
