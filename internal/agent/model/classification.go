package model

import (
	"encoding/json"
	"strings"
)

// CityLocation is a CPTEC locality as returned by the city search.
type CityLocation struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Classification is the single result every classification path produces.
type Classification struct {
	Action           Action         `json:"action"`
	ExtractedZipCode string         `json:"extractedZipCode,omitempty"`
	ExtractedCity    string         `json:"extractedCity,omitempty"`
	Justification    string         `json:"justification"`
	FriendlyMessage  string         `json:"friendlyMessage"`
	FoundCities      []CityLocation `json:"foundCities,omitempty"`
}

// MarshalJSON keeps an empty, non-nil FoundCities on the wire as [] so
// CITY_NOT_FOUND carries an explicit empty list.
func (c Classification) MarshalJSON() ([]byte, error) {
	type alias Classification
	out := struct {
		alias
		FoundCities *[]CityLocation `json:"foundCities,omitempty"`
	}{alias: alias(c)}
	if c.FoundCities != nil {
		out.FoundCities = &c.FoundCities
	}
	return json.Marshal(out)
}

// Normalize clears payload fields that do not belong to the action.
func (c Classification) Normalize() Classification {
	switch c.Action {
	case ActionConsultZipCode, ActionConsultZipCodeAndWeather:
		c.ExtractedCity = ""
		c.FoundCities = nil
	case ActionConsultWeatherDirect:
		c.ExtractedZipCode = ""
		c.FoundCities = nil
	case ActionMultipleCities:
		c.ExtractedZipCode = ""
	case ActionCityNotFound:
		c.ExtractedZipCode = ""
		c.FoundCities = []CityLocation{}
	case ActionOutOfScope, ActionRequestZipCode, ActionRequestLocation:
		c.ExtractedZipCode = ""
		c.ExtractedCity = ""
		c.FoundCities = nil
	default:
		c.ExtractedZipCode = ""
		c.ExtractedCity = ""
		c.FoundCities = nil
	}
	return c
}

// ResolveCity applies the tie-break rule shared by every lookup path: a
// single candidate wins, otherwise a unique candidate in the known state
// wins. Any other case is left to the user.
func ResolveCity(cities []CityLocation, state string) (CityLocation, bool) {
	if len(cities) == 1 {
		return cities[0], true
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return CityLocation{}, false
	}

	var match CityLocation
	n := 0
	for _, c := range cities {
		if strings.EqualFold(strings.TrimSpace(c.State), state) {
			match = c
			n++
		}
	}
	return match, n == 1
}
