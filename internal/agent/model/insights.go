package model

// LocationInsights is the AI analysis of a CEP and its forecast.
type LocationInsights struct {
	Address  *Address         `json:"address"`
	City     *CityLocation    `json:"city,omitempty"`
	Metrics  *ClimateMetrics  `json:"metrics,omitempty"`
	Analysis LocationAnalysis `json:"analysis"`
	Insights ClimateInsights  `json:"insights"`
	Notes    []string         `json:"notes,omitempty"`
}

type LocationAnalysis struct {
	LocationSummary        string   `json:"locationSummary"`
	ClimateCharacteristics string   `json:"climateCharacteristics"`
	Recommendations        []string `json:"recommendations"`
	Curiosities            []string `json:"curiosities"`
	Alerts                 []string `json:"alerts"`
}

type ClimateInsights struct {
	ClimateType          string `json:"climateType"`
	UVIntensity          string `json:"uvIntensity"`
	TemperatureVariation string `json:"temperatureVariation"`
	EstimatedAirQuality  string `json:"estimatedAirQuality"`
}

// ClimateMetrics summarises a forecast for the analysis prompt.
type ClimateMetrics struct {
	AvgMin     int     `json:"avgMin"`
	AvgMax     int     `json:"avgMax"`
	AvgRange   int     `json:"avgRange"`
	MaxUVIndex float64 `json:"maxUvIndex"`
	Days       int     `json:"days"`
}

// InsightsConfig drives the location_insights generation.
type InsightsConfig struct {
	Model       string  `envconfig:"INSIGHTS_MODEL" default:"gemini-2.5-flash-lite"`
	Temperature float32 `envconfig:"INSIGHTS_TEMPERATURE" default:"0.7"`
}
