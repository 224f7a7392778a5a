package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/cepclima/server/internal/agent/model"
)

type ZipCodeInput struct {
	CEP string `json:"cep"`
}

func createZipCodeLookupTool(api Lookups) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolZipCodeLookup,
			Desc: "Consulta o endereço (rua, bairro, cidade, estado) de um CEP brasileiro. Use quando o usuário informar um CEP e quiser o endereço.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"cep": {
					Type:     schema.String,
					Desc:     "CEP com 8 dígitos, com ou sem hífen (ex.: 01310-100 ou 01310100).",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *ZipCodeInput) (*model.Address, error) {
			return api.LookupZipCode(ctx, in.CEP)
		},
	)
}

func createZipCodeWeatherTool(api Lookups, defaultDays int) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolZipCodeWeather,
			Desc: "Consulta o endereço de um CEP e a previsão do tempo da cidade correspondente. Use quando o usuário pedir clima ou previsão para um CEP.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"cep": {
					Type:     schema.String,
					Desc:     "CEP com 8 dígitos, com ou sem hífen.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *ZipCodeInput) (*model.Lookup, error) {
			return ZipCodeWeather(ctx, api, in.CEP, defaultDays)
		},
	)
}
