package decisor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepclima/server/internal/agent/extract"
	"github.com/cepclima/server/internal/agent/llm"
	"github.com/cepclima/server/internal/agent/model"
)

// scriptedGenerator answers per schema: decision and analysis calls can be
// scripted independently.
type scriptedGenerator struct {
	decision func() (json.RawMessage, error)
	analysis func() (json.RawMessage, error)
	calls    []string
	temps    []float32
}

func (g *scriptedGenerator) GenerateObject(ctx context.Context, req llm.ObjectRequest) (json.RawMessage, error) {
	g.temps = append(g.temps, req.Temperature)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("generation without deadline")
	}
	switch req.Schema {
	case decisionSchema:
		g.calls = append(g.calls, "decision")
		return g.decision()
	case analysisSchema:
		g.calls = append(g.calls, "analysis")
		return g.analysis()
	}
	return nil, errors.New("unexpected schema")
}

func object(s string) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) { return json.RawMessage(s), nil }
}

func failing(err error) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) { return nil, err }
}

func newDecisor(gen *scriptedGenerator, search CitySearcher) (*Decisor, *Fallback) {
	fb := NewFallback(search, time.Second)
	return New(fb, time.Second,
		NewDecisionStrategy(gen, LLMConfig{Model: "gemini-2.5-flash-lite", Temperature: 0.3}),
		NewAnalysisStrategy(gen, LLMConfig{Model: "gemini-2.5-flash-lite", Temperature: 0.1}),
	), fb
}

func TestDecisorOrder(t *testing.T) {
	d, _ := newDecisor(&scriptedGenerator{}, newStub())
	assert.Equal(t, []string{"decision", "analysis", "fallback"}, d.Strategies())
}

func TestDecisorPrimarySuccess(t *testing.T) {
	gen := &scriptedGenerator{
		decision: object(`{"action":"CONSULT_ZIP_CODE_AND_WEATHER","extractedZipCode":"01310-100","extractedCity":"São Paulo","justification":"cep + clima","friendlyMessage":"Vou buscar!","needsZipCode":true,"canFallback":true}`),
	}
	d, _ := newDecisor(gen, newStub())

	got := d.Classify(context.Background(), "Como está o clima no CEP 01310-100?")
	assert.Equal(t, model.ActionConsultZipCodeAndWeather, got.Action)
	assert.Equal(t, "01310100", got.ExtractedZipCode)
	assert.Empty(t, got.ExtractedCity, "city is irrelevant for CEP actions")
	assert.Equal(t, []string{"decision"}, gen.calls)
	assert.Equal(t, []float32{0.3}, gen.temps)
}

func TestDecisorFallsBackToAnalysis(t *testing.T) {
	for name, decision := range map[string]func() (json.RawMessage, error){
		"error":         failing(errors.New("quota exceeded")),
		"no object":     failing(llm.ErrNoObject),
		"bad action":    object(`{"action":"DANCE","justification":"x","friendlyMessage":"y","needsZipCode":false,"canFallback":true}`),
		"zip missing":   object(`{"action":"CONSULT_ZIP_CODE","justification":"x","friendlyMessage":"y","needsZipCode":true,"canFallback":true}`),
		"city missing":  object(`{"action":"CONSULT_WEATHER_DIRECT","justification":"x","friendlyMessage":"y","needsZipCode":false,"canFallback":true}`),
		"not an object": object(`"CONSULT_ZIP_CODE"`),
	} {
		t.Run(name, func(t *testing.T) {
			gen := &scriptedGenerator{
				decision: decision,
				analysis: object(`{"queryType":"OUT_OF_SCOPE","recommendedAction":"OUT_OF_SCOPE","justification":"fora","friendlyMessage":"Só CEP e clima 😊"}`),
			}
			d, _ := newDecisor(gen, newStub())

			got := d.Classify(context.Background(), "Como fazer bolo?")
			assert.Equal(t, model.ActionOutOfScope, got.Action)
			assert.Equal(t, []string{"decision", "analysis"}, gen.calls)
			assert.Equal(t, []float32{0.3, 0.1}, gen.temps)
		})
	}
}

func TestDecisorFallsBackToDeterministic(t *testing.T) {
	gen := &scriptedGenerator{
		decision: failing(context.DeadlineExceeded),
		analysis: failing(errors.New("503")),
	}
	d, fb := newDecisor(gen, newStub())

	got := d.Classify(context.Background(), "01310-100")
	assert.Equal(t, fb.Analyze(context.Background(), "01310-100"), got)
	assert.Equal(t, []string{"decision", "analysis"}, gen.calls)
}

func TestDecisorDiscardsFragmentCity(t *testing.T) {
	const input = "Weather for São Paulo"
	gen := &scriptedGenerator{
		decision: object(`{"action":"CONSULT_WEATHER_DIRECT","extractedCity":"for São Paulo","justification":"x","friendlyMessage":"y","needsZipCode":false,"canFallback":true}`),
		analysis: object(`{"queryType":"WEATHER","recommendedAction":"CONSULT_WEATHER_DIRECT","identifiedCity":"São Paulo","justification":"x","friendlyMessage":"y"}`),
	}
	d, fb := newDecisor(gen, newStub())

	got := d.Classify(context.Background(), input)
	want := fb.Analyze(context.Background(), input).Normalize()
	assert.Equal(t, want, got)
	assert.Equal(t, "São Paulo", got.ExtractedCity)
	assert.Equal(t, []string{"decision"}, gen.calls, "untrusted result skips the analysis attempt")
}

func TestDecisorDiscardsWeatherWordCity(t *testing.T) {
	gen := &scriptedGenerator{
		decision: failing(errors.New("down")),
		analysis: object(`{"queryType":"WEATHER","recommendedAction":"CONSULT_WEATHER_DIRECT","identifiedCity":"previsão do tempo","justification":"x","friendlyMessage":"y"}`),
	}
	d, _ := newDecisor(gen, newStub())

	got := d.Classify(context.Background(), "Previsão do tempo")
	assert.Equal(t, model.ActionRequestLocation, got.Action)
	assert.Empty(t, got.ExtractedCity)
}

func TestDecisorKeepsMultiWordCities(t *testing.T) {
	gen := &scriptedGenerator{
		decision: object(`{"action":"CONSULT_WEATHER_DIRECT","extractedCity":"Rio de Janeiro","justification":"x","friendlyMessage":"Vou buscar a previsão!","needsZipCode":false,"canFallback":true}`),
	}
	d, _ := newDecisor(gen, newStub())

	got := d.Classify(context.Background(), "Clima no Rio de Janeiro")
	assert.Equal(t, model.ActionConsultWeatherDirect, got.Action)
	assert.Equal(t, "Rio de Janeiro", got.ExtractedCity)
}

func TestDecisorNeverFails(t *testing.T) {
	broken := StrategyFunc{ID: "broken", Fn: func(context.Context, string) (model.Classification, error) {
		return model.Classification{}, errors.New("always")
	}}
	d := New(broken, time.Second, broken)

	got := d.Classify(context.Background(), "qualquer coisa")
	assert.Equal(t, model.ActionRequestLocation, got.Action)
	assert.NotEmpty(t, got.FriendlyMessage)
}

func TestDecisorCancelledContextStillAnswers(t *testing.T) {
	gen := &scriptedGenerator{
		decision: failing(context.Canceled),
		analysis: failing(context.Canceled),
	}
	d, _ := newDecisor(gen, newStub())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := d.Classify(ctx, "Previsão do tempo")
	assert.Equal(t, model.ActionRequestLocation, got.Action)
}

func TestValidate(t *testing.T) {
	c, err := validate(model.Classification{Action: model.ActionConsultZipCode, ExtractedZipCode: "01310-100", FriendlyMessage: "ok"}, model.PrimaryActions)
	require.NoError(t, err)
	assert.Equal(t, "01310100", c.ExtractedZipCode)

	_, err = validate(model.Classification{Action: model.ActionOutOfScope, FriendlyMessage: "ok"}, model.PrimaryActions)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = validate(model.Classification{Action: model.ActionConsultZipCode, ExtractedZipCode: "0131", FriendlyMessage: "ok"}, model.PrimaryActions)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = validate(model.Classification{Action: model.ActionConsultWeatherDirect, ExtractedCity: "tempo em Recife", FriendlyMessage: "ok"}, model.PrimaryActions)
	assert.ErrorIs(t, err, ErrUntrustedExtraction)

	_, err = validate(model.Classification{Action: model.ActionConsultWeatherDirect, ExtractedCity: "Recife"}, model.PrimaryActions)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestDecisorClipsOversizedInput(t *testing.T) {
	stub := newStub()
	d := New(NewFallback(stub, time.Second), time.Second)
	input := "previsão do tempo " + strings.Repeat("Abc ", 16000)

	start := time.Now()
	got := d.Classify(context.Background(), input)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, model.ActionCityNotFound, got.Action)

	require.Len(t, stub.searched, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(stub.searched[0]), extract.MaxInputRunes)
}
