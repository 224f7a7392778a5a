package decisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cepclima/server/internal/agent/extract"
	"github.com/cepclima/server/internal/agent/lexicon"
	"github.com/cepclima/server/internal/agent/model"
	errx "github.com/cepclima/server/internal/core/error"
	logx "github.com/cepclima/server/pkg/logger"
)

const defaultSearchTimeout = 30 * time.Second

// CitySearcher is the city-search collaborator used to disambiguate.
type CitySearcher interface {
	SearchCities(ctx context.Context, name string) ([]model.CityLocation, error)
}

// Fallback is the deterministic keyword/pattern classifier.
type Fallback struct {
	search  CitySearcher
	timeout time.Duration
}

func NewFallback(search CitySearcher, timeout time.Duration) *Fallback {
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	return &Fallback{search: search, timeout: timeout}
}

func (f *Fallback) Name() string {
	return "fallback"
}

// Classify never fails.
func (f *Fallback) Classify(ctx context.Context, input string) (model.Classification, error) {
	return f.Analyze(ctx, input), nil
}

// Analyze evaluates the decision procedure top to bottom; the first matching
// branch wins.
func (f *Fallback) Analyze(ctx context.Context, input string) model.Classification {
	input = extract.ClipInput(input)
	hasWeather := lexicon.HasWeatherKeyword(input)

	if zip, ok := extract.ZipCode(input); ok {
		if hasWeather {
			return model.Classification{
				Action:           model.ActionConsultZipCodeAndWeather,
				ExtractedZipCode: zip,
				Justification:    "CEP identificado com menção a clima/tempo",
				FriendlyMessage:  fmt.Sprintf("Vou buscar o endereço e a previsão do tempo para o CEP %s! 😊", extract.FormatZipCode(zip)),
			}
		}
		return model.Classification{
			Action:           model.ActionConsultZipCode,
			ExtractedZipCode: zip,
			Justification:    "CEP identificado na entrada",
			FriendlyMessage:  "Vou buscar as informações do endereço para você! 😊",
		}
	}

	hasPostal := lexicon.HasPostalKeyword(input)

	var (
		city      string
		extracted bool
	)
	if hasWeather || hasPostal {
		city, extracted = extract.BestCityName(input)
	}

	if (extract.LooksLikeBareCity(input) && !hasPostal) || extracted {
		if !extracted {
			city = strings.TrimSpace(input)
		}
		return f.classifyCity(ctx, city)
	}

	if hasWeather {
		return model.Classification{
			Action:          model.ActionRequestLocation,
			Justification:   "Consulta de clima detectada, mas cidade não especificada",
			FriendlyMessage: "Previsão do tempo de qual CEP ou cidade? 😊",
		}
	}

	if hasPostal {
		return model.Classification{
			Action:          model.ActionRequestZipCode,
			Justification:   "Consulta de endereço detectada, mas CEP não especificado",
			FriendlyMessage: "De qual CEP você gostaria de saber o endereço? 😊",
		}
	}

	return model.Classification{
		Action:          model.ActionRequestLocation,
		Justification:   "Não foi possível identificar a intenção da consulta",
		FriendlyMessage: "Pode me dizer o que você gostaria de saber? CEP, endereço ou previsão do tempo? 😊",
	}
}

func (f *Fallback) classifyCity(ctx context.Context, city string) model.Classification {
	if !extract.IsValidCityName(city) {
		return model.Classification{
			Action:          model.ActionOutOfScope,
			Justification:   "Consulta não relacionada a CEP ou clima",
			FriendlyMessage: "Desculpe, só posso ajudar com consultas de CEP e previsão do tempo. Pode me perguntar sobre endereços ou clima? 😊",
		}
	}

	name, state := extract.StateHint(city)

	searchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cities, err := f.search.SearchCities(searchCtx, name)
	if err != nil && !cityMissing(err) {
		logx.Warn().Err(err).Str("city", name).Msg("city search failed, assuming the city exists")
		return model.Classification{
			Action:          model.ActionConsultWeatherDirect,
			ExtractedCity:   city,
			Justification:   "Cidade identificada na entrada (validação falhou)",
			FriendlyMessage: fmt.Sprintf("Vou buscar a previsão do tempo para %s! 😊", city),
		}
	}

	switch {
	case err != nil || len(cities) == 0:
		return model.Classification{
			Action:          model.ActionCityNotFound,
			ExtractedCity:   city,
			Justification:   "Cidade não encontrada na base de dados",
			FriendlyMessage: fmt.Sprintf("Desculpe, não encontrei a cidade \"%s\" na base de dados. Pode verificar o nome ou tentar uma cidade próxima? 😊", city),
			FoundCities:     []model.CityLocation{},
		}
	case len(cities) == 1:
		return model.Classification{
			Action:          model.ActionConsultWeatherDirect,
			ExtractedCity:   city,
			Justification:   "Cidade única identificada e validada",
			FriendlyMessage: fmt.Sprintf("Vou buscar a previsão do tempo para %s! 😊", city),
		}
	}

	if chosen, ok := model.ResolveCity(cities, state); ok {
		return model.Classification{
			Action:          model.ActionConsultWeatherDirect,
			ExtractedCity:   city,
			Justification:   fmt.Sprintf("Cidade desambiguada pelo estado %s", chosen.State),
			FriendlyMessage: fmt.Sprintf("Vou buscar a previsão do tempo para %s/%s! 😊", chosen.Name, chosen.State),
		}
	}

	return model.Classification{
		Action:          model.ActionMultipleCities,
		ExtractedCity:   city,
		Justification:   "Múltiplas cidades encontradas com o mesmo nome",
		FriendlyMessage: fmt.Sprintf("Encontrei várias cidades com o nome \"%s\". Qual você quer? 😊", city),
		FoundCities:     cities,
	}
}

// cityMissing reports upstream answers that mean "no such city", as opposed
// to the call itself failing.
func cityMissing(err error) bool {
	return errx.IsNotFound(err) || errx.CodeOf(err) == errx.CodeLocalidadeInvalid
}
