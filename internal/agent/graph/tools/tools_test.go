package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepclima/server/internal/agent/model"
	errx "github.com/cepclima/server/internal/core/error"
)

type fakeAPI struct {
	addr        *model.Address
	addrErr     error
	cities      map[string][]model.CityLocation
	searchErr   error
	forecast    *model.Forecast
	forecastErr error

	searched   []string
	forecastID int
	days       int
}

func (f *fakeAPI) LookupZipCode(_ context.Context, cep string) (*model.Address, error) {
	if f.addrErr != nil {
		return nil, f.addrErr
	}
	a := *f.addr
	a.ZipCode = cep
	return &a, nil
}

func (f *fakeAPI) SearchCities(_ context.Context, name string) ([]model.CityLocation, error) {
	f.searched = append(f.searched, name)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.cities[name], nil
}

func (f *fakeAPI) Forecast(_ context.Context, code, days int) (*model.Forecast, error) {
	f.forecastID, f.days = code, days
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	return f.forecast, nil
}

var (
	bomJesusPI = model.CityLocation{ID: 10, Name: "Bom Jesus", State: "PI"}
	bomJesusRS = model.CityLocation{ID: 11, Name: "Bom Jesus", State: "RS"}
	saoPaulo   = model.CityLocation{ID: 244, Name: "São Paulo", State: "SP"}
	sunny      = &model.Forecast{City: "São Paulo", State: "SP", Days: []model.DailyForecast{{Date: "2024-01-01", Min: 18, Max: 28}}}
)

func TestZipCodeWeatherUsesAddressState(t *testing.T) {
	api := &fakeAPI{
		addr:     &model.Address{City: "Bom Jesus", State: "RS"},
		cities:   map[string][]model.CityLocation{"Bom Jesus": {bomJesusPI, bomJesusRS}},
		forecast: sunny,
	}

	lookup, err := ZipCodeWeather(context.Background(), api, "95290000", 3)
	require.NoError(t, err)
	require.NotNil(t, lookup.City)
	assert.Equal(t, bomJesusRS, *lookup.City)
	assert.Equal(t, 11, api.forecastID)
	assert.Equal(t, 3, api.days)
	assert.Same(t, sunny, lookup.Forecast)
}

func TestZipCodeWeatherDegradesToAddress(t *testing.T) {
	api := &fakeAPI{
		addr:        &model.Address{City: "São Paulo", State: "SP"},
		cities:      map[string][]model.CityLocation{"São Paulo": {saoPaulo}},
		forecastErr: errx.NewCode(errx.CodeNoForecast, 400, "sem previsão", nil),
	}

	lookup, err := ZipCodeWeather(context.Background(), api, "01310100", 4)
	require.NoError(t, err)
	assert.NotNil(t, lookup.Address)
	assert.Nil(t, lookup.Forecast)
	require.Len(t, lookup.Notes, 1)
	assert.Contains(t, lookup.Notes[0], "Previsão do tempo não disponível")
}

func TestZipCodeWeatherFailsOnAddress(t *testing.T) {
	api := &fakeAPI{addrErr: errx.NotFound(errx.ResourceCEP)}
	_, err := ZipCodeWeather(context.Background(), api, "00000000", 4)
	assert.True(t, errx.IsNotFound(err))
	assert.Empty(t, api.searched)
}

func TestWeatherByCity(t *testing.T) {
	api := &fakeAPI{
		cities:   map[string][]model.CityLocation{"Bom Jesus": {bomJesusPI, bomJesusRS}, "São Paulo": {saoPaulo}},
		forecast: sunny,
	}

	lookup, err := WeatherByCity(context.Background(), api, "Bom Jesus", 4)
	require.NoError(t, err)
	assert.Len(t, lookup.Candidates, 2)
	assert.Nil(t, lookup.Forecast, "ambiguous names are never resolved to the first result")

	lookup, err = WeatherByCity(context.Background(), api, "Bom Jesus - PI", 4)
	require.NoError(t, err)
	assert.Equal(t, bomJesusPI, *lookup.City)
	assert.Equal(t, "Bom Jesus", api.searched[len(api.searched)-1])

	lookup, err = WeatherByCity(context.Background(), api, "São Paulo", 4)
	require.NoError(t, err)
	assert.Same(t, sunny, lookup.Forecast)

	_, err = WeatherByCity(context.Background(), api, "Xyzópolis", 4)
	assert.Equal(t, errx.CodeLocalidadeNotFound, errx.CodeOf(err))
}

func TestToolsInvoke(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{
		addr:     &model.Address{City: "São Paulo", State: "SP", Street: "Avenida Paulista"},
		cities:   map[string][]model.CityLocation{"São Paulo": {saoPaulo}},
		forecast: sunny,
	}

	byName, err := Invokable(ctx, GetQueryTools(api, 4, nil))
	require.NoError(t, err)
	require.Len(t, byName, 4)

	out, err := byName[ToolCitySearch].InvokableRun(ctx, `{"city_name":"São Paulo"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cities":[{"id":244,"name":"São Paulo","state":"SP"}]}`, out)

	_, err = byName[ToolWeatherForecast].InvokableRun(ctx, `{"city_code":244}`)
	require.NoError(t, err)
	assert.Equal(t, 4, api.days)

	out, err = byName[ToolZipCodeWeather].InvokableRun(ctx, `{"cep":"01310-100"}`)
	require.NoError(t, err)
	var lookup model.Lookup
	require.NoError(t, json.Unmarshal([]byte(out), &lookup))
	assert.Equal(t, "Avenida Paulista", lookup.Address.Street)
	assert.NotNil(t, lookup.Forecast)
}

func TestTolerantReportsErrorsAsResult(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{addrErr: errx.NotFound(errx.ResourceCEP)}

	raw, err := Invokable(ctx, GetQueryTools(api, 4, nil))
	require.NoError(t, err)
	_, err = raw[ToolZipCodeLookup].InvokableRun(ctx, `{"cep":"00000000"}`)
	assert.Error(t, err)

	wrapped, err := Invokable(ctx, Tolerant(GetQueryTools(api, 4, nil)))
	require.NoError(t, err)
	out, err := wrapped[ToolZipCodeLookup].InvokableRun(ctx, `{"cep":"00000000"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"CEP_NOT_FOUND","message":"❌ CEP não encontrado. Verifique se o CEP está correto e tente novamente."}`, out)
}

func TestToolInfos(t *testing.T) {
	infos, err := GetToolInfos(context.Background(), GetQueryTools(&fakeAPI{}, 4, nil))
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, i := range infos {
		names = append(names, i.Name)
	}
	assert.Equal(t, []string{ToolZipCodeLookup, ToolCitySearch, ToolWeatherForecast, ToolZipCodeWeather}, names)
}
