package main

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepclima/server/internal/agent/decisor"
	"github.com/cepclima/server/internal/agent/model"
)

type noCities struct{ calls atomic.Int32 }

func (n *noCities) SearchCities(context.Context, string) ([]model.CityLocation, error) {
	n.calls.Add(1)
	return nil, nil
}

func TestClassifyBatchKeepsOrder(t *testing.T) {
	d := decisor.New(decisor.NewFallback(&noCities{}, time.Second), time.Second)
	lines := []string{"01310-100", "Previsão do tempo", "clima no CEP 20040-020", "Como fazer bolo?"}

	results, err := classifyBatch(context.Background(), d, lines, 3)
	require.NoError(t, err)
	require.Len(t, results, 4)

	want := []model.Action{
		model.ActionConsultZipCode,
		model.ActionRequestLocation,
		model.ActionConsultZipCodeAndWeather,
		model.ActionRequestLocation,
	}
	for i, r := range results {
		assert.Equal(t, i+1, r.Line)
		assert.Equal(t, lines[i], r.Input)
		assert.Equal(t, want[i], r.Classification.Action, r.Input)
	}
}

func TestClassifyBatchCancelled(t *testing.T) {
	d := decisor.New(decisor.NewFallback(&noCities{}, time.Second), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := classifyBatch(ctx, d, []string{"01310-100"}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadLinesSkipsBlank(t *testing.T) {
	lines, err := readLines(strings.NewReader("  01310-100 \n\n\tClima em Recife\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"01310-100", "Clima em Recife"}, lines)
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "ask", "classify", "batch", "forget"})
}

func TestWriteJSONKeepsAccents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, model.Classification{Action: model.ActionRequestLocation, FriendlyMessage: "Qual é a cidade?"}))
	assert.Contains(t, buf.String(), "Qual é a cidade?")
}
