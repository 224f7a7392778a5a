package model

// Address is a resolved CEP.
type Address struct {
	ZipCode      string `json:"zipCode"`
	State        string `json:"state"`
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood"`
	Street       string `json:"street"`
}

type DailyForecast struct {
	Date                 string  `json:"date"`
	Condition            string  `json:"condition"`
	ConditionDescription string  `json:"conditionDescription"`
	Min                  int     `json:"min"`
	Max                  int     `json:"max"`
	UVIndex              float64 `json:"uvIndex"`
}

type Forecast struct {
	City      string          `json:"city"`
	State     string          `json:"state"`
	UpdatedAt string          `json:"updatedAt"`
	Days      []DailyForecast `json:"days"`
}

// Lookup gathers whatever the lookup workflows managed to fetch. Notes carry
// partial failures (e.g. forecast unavailable) for the response model.
type Lookup struct {
	Address    *Address       `json:"address,omitempty"`
	City       *CityLocation  `json:"city,omitempty"`
	Candidates []CityLocation `json:"candidates,omitempty"`
	Forecast   *Forecast      `json:"forecast,omitempty"`
	Notes      []string       `json:"notes,omitempty"`
}

// Reply is the outcome of a full chat turn.
type Reply struct {
	ConversationID string         `json:"conversationId"`
	Classification Classification `json:"classification"`
	Lookup         *Lookup        `json:"lookup,omitempty"`
	Message        string         `json:"message"`
	CostUSD        float64        `json:"costUsd,omitempty"`
}
