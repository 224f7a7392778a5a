package brasilapi

import "github.com/cepclima/server/internal/agent/model"

const notInformed = "Não informado"

type zipCodeResponse struct {
	CEP          string `json:"cep"`
	State        string `json:"state"`
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood"`
	Street       string `json:"street"`
}

func (r zipCodeResponse) toModel(cep string) *model.Address {
	return &model.Address{
		ZipCode:      cep,
		State:        r.State,
		City:         r.City,
		Neighborhood: orNotInformed(r.Neighborhood),
		Street:       orNotInformed(r.Street),
	}
}

type cityResponse struct {
	ID     int    `json:"id"`
	Nome   string `json:"nome"`
	Estado string `json:"estado"`
}

type forecastResponse struct {
	Cidade       string `json:"cidade"`
	Estado       string `json:"estado"`
	AtualizadoEm string `json:"atualizado_em"`
	Clima        []struct {
		Data         string  `json:"data"`
		Condicao     string  `json:"condicao"`
		CondicaoDesc string  `json:"condicao_desc"`
		Min          int     `json:"min"`
		Max          int     `json:"max"`
		IndiceUV     float64 `json:"indice_uv"`
	} `json:"clima"`
}

func (r forecastResponse) toModel() *model.Forecast {
	f := &model.Forecast{
		City:      r.Cidade,
		State:     r.Estado,
		UpdatedAt: r.AtualizadoEm,
		Days:      make([]model.DailyForecast, 0, len(r.Clima)),
	}
	for _, d := range r.Clima {
		f.Days = append(f.Days, model.DailyForecast{
			Date:                 d.Data,
			Condition:            d.Condicao,
			ConditionDescription: d.CondicaoDesc,
			Min:                  d.Min,
			Max:                  d.Max,
			UVIndex:              d.IndiceUV,
		})
	}
	return f
}

// errorBody is the error envelope BrasilAPI returns on non-2xx responses.
type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Name    string `json:"name"`
}

func orNotInformed(s string) string {
	if s == "" {
		return notInformed
	}
	return s
}
