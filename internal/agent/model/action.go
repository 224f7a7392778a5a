package model

import (
	"fmt"
	"strings"
)

// Action is the closed set of outcomes a classification can produce.
type Action string

const (
	ActionConsultZipCode           Action = "CONSULT_ZIP_CODE"
	ActionConsultZipCodeAndWeather Action = "CONSULT_ZIP_CODE_AND_WEATHER"
	ActionConsultWeatherDirect     Action = "CONSULT_WEATHER_DIRECT"
	ActionOutOfScope               Action = "OUT_OF_SCOPE"
	ActionRequestZipCode           Action = "REQUEST_ZIP_CODE"
	ActionRequestLocation          Action = "REQUEST_LOCATION"
	ActionMultipleCities           Action = "MULTIPLE_CITIES"
	ActionCityNotFound             Action = "CITY_NOT_FOUND"
)

var actions = []Action{
	ActionConsultZipCode,
	ActionConsultZipCodeAndWeather,
	ActionConsultWeatherDirect,
	ActionOutOfScope,
	ActionRequestZipCode,
	ActionRequestLocation,
	ActionMultipleCities,
	ActionCityNotFound,
}

// PrimaryActions are the lookups the first decision schema may choose from.
var PrimaryActions = []Action{
	ActionConsultZipCode,
	ActionConsultZipCodeAndWeather,
	ActionConsultWeatherDirect,
}

// Portuguese identifiers accepted on input, as emitted by older prompts.
var legacyActions = map[string]Action{
	"CONSULTAR_CEP":             ActionConsultZipCode,
	"CONSULTAR_CEP_E_PREVISAO":  ActionConsultZipCodeAndWeather,
	"CONSULTAR_PREVISAO_DIRETA": ActionConsultWeatherDirect,
	"CONSULTA_FORA_ESCOPO":      ActionOutOfScope,
	"FORA_ESCOPO":               ActionOutOfScope,
	"SOLICITAR_CEP":             ActionRequestZipCode,
	"SOLICITAR_LOCAL":           ActionRequestLocation,
	"MULTIPLAS_CIDADES":         ActionMultipleCities,
	"CIDADE_NAO_ENCONTRADA":     ActionCityNotFound,
}

// Actions returns every action in declaration order.
func Actions() []Action {
	return append([]Action(nil), actions...)
}

func (a Action) String() string {
	return string(a)
}

func (a Action) Valid() bool {
	switch a {
	case ActionConsultZipCode, ActionConsultZipCodeAndWeather, ActionConsultWeatherDirect,
		ActionOutOfScope, ActionRequestZipCode, ActionRequestLocation,
		ActionMultipleCities, ActionCityNotFound:
		return true
	default:
		return false
	}
}

// NeedsZipCode reports whether the action carries an extracted CEP.
func (a Action) NeedsZipCode() bool {
	return a == ActionConsultZipCode || a == ActionConsultZipCodeAndWeather
}

// NeedsLookup reports whether the action triggers a BrasilAPI lookup.
func (a Action) NeedsLookup() bool {
	switch a {
	case ActionConsultZipCode, ActionConsultZipCodeAndWeather, ActionConsultWeatherDirect:
		return true
	case ActionOutOfScope, ActionRequestZipCode, ActionRequestLocation, ActionMultipleCities, ActionCityNotFound:
		return false
	default:
		return false
	}
}

// ParseAction accepts the canonical identifiers and their Portuguese forms.
func ParseAction(s string) (Action, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if a := Action(key); a.Valid() {
		return a, nil
	}
	if a, ok := legacyActions[key]; ok {
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}
