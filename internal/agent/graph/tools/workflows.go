package tools

import (
	"context"
	"fmt"

	"github.com/cepclima/server/internal/agent/extract"
	"github.com/cepclima/server/internal/agent/model"
	errx "github.com/cepclima/server/internal/core/error"
	logx "github.com/cepclima/server/pkg/logger"
)

// ZipCodeLookup resolves only the address of a CEP.
func ZipCodeLookup(ctx context.Context, api Lookups, cep string) (*model.Lookup, error) {
	addr, err := api.LookupZipCode(ctx, cep)
	if err != nil {
		return nil, err
	}
	return &model.Lookup{Address: addr}, nil
}

// ZipCodeWeather resolves a CEP, finds its CPTEC city using the address
// state as tie-break, then fetches the forecast. Failures after the address
// step degrade to an address-only lookup with a note.
func ZipCodeWeather(ctx context.Context, api Lookups, cep string, days int) (*model.Lookup, error) {
	lookup, err := ZipCodeLookup(ctx, api, cep)
	if err != nil {
		return nil, err
	}
	addr := lookup.Address

	cities, err := api.SearchCities(ctx, addr.City)
	if err != nil {
		logx.Warn().Err(err).Str("city", addr.City).Msg("city search failed after CEP lookup")
		lookup.Notes = append(lookup.Notes, fmt.Sprintf("Previsão indisponível para %s: %s", addr.City, errx.UserMessage(err)))
		return lookup, nil
	}

	city, ok := model.ResolveCity(cities, addr.State)
	if !ok {
		if len(cities) == 0 {
			lookup.Notes = append(lookup.Notes, fmt.Sprintf("A cidade %s/%s não foi encontrada na base de previsões.", addr.City, addr.State))
		} else {
			lookup.Candidates = cities
			lookup.Notes = append(lookup.Notes, fmt.Sprintf("Há várias cidades chamadas %s; nenhuma em %s.", addr.City, addr.State))
		}
		return lookup, nil
	}

	lookup.City = &city
	return withForecast(ctx, api, lookup, city, days), nil
}

// WeatherByCity searches a city by name (optionally suffixed with a UF, as in
// "Campinas SP") and fetches its forecast when a single candidate remains.
// Several candidates are returned unresolved for the user to choose.
func WeatherByCity(ctx context.Context, api Lookups, name string, days int) (*model.Lookup, error) {
	cityName, state := extract.StateHint(name)

	cities, err := api.SearchCities(ctx, cityName)
	if err != nil {
		return nil, err
	}
	if len(cities) == 0 {
		return nil, errx.NotFound(errx.ResourceLocalidade)
	}

	city, ok := model.ResolveCity(cities, state)
	if !ok {
		return &model.Lookup{Candidates: cities}, nil
	}

	lookup := &model.Lookup{City: &city}
	return withForecast(ctx, api, lookup, city, days), nil
}

func withForecast(ctx context.Context, api Lookups, lookup *model.Lookup, city model.CityLocation, days int) *model.Lookup {
	forecast, err := api.Forecast(ctx, city.ID, days)
	if err != nil {
		logx.Warn().Err(err).Int("city_code", city.ID).Msg("forecast lookup failed")
		lookup.Notes = append(lookup.Notes, errx.UserMessage(err))
		return lookup
	}
	lookup.Forecast = forecast
	return lookup
}
