package extract

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCityName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"São Paulo", true},
		{"Rio de Janeiro", true},
		{"Embu-Guaçu", true},
		{"Santa Bárbara d'Oeste", true},
		{"  Recife  ", true},
		{"previsão do tempo", false},
		{"a", false},
		{"carro", false},
		{"for São Paulo", false},
		{"São Paulo em", false},
		{"de", false},
		{"CEP", false},
		{"São Paulo 2", false},
		{"Curitiba amanhã", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCityName(tt.input))
		})
	}
}

func TestBestCityName(t *testing.T) {
	tests := []struct {
		input string
		want  string
		found bool
	}{
		{"Como está o clima em São Paulo?", "São Paulo", true},
		{"Qual a previsão para Rio de Janeiro?", "Rio de Janeiro", true},
		{"previsão do tempo em Recife", "Recife", true},
		{"Clima em Belo Horizonte, por favor", "Belo Horizonte", true},
		{"Vai chover em Curitiba amanhã?", "Curitiba", true},
		{"weather in Porto Alegre", "Porto Alegre", true},
		{"previsão Manaus", "Manaus", true},
		{"Previsão do tempo", "", false},
		{"qual o cep?", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := BestCityName(tt.input)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplatesCompiledInOrder(t *testing.T) {
	assert.Len(t, cityTemplates, 3)
	for _, tpl := range cityTemplates {
		assert.Greater(t, tpl.re.NumSubexp(), tpl.group-1)
	}
}

func TestLongestCityRunSkipsPostalFragments(t *testing.T) {
	got, ok := longestCityRun("Zipcodeville Natal")
	assert.True(t, ok)
	assert.Equal(t, "Natal", got)
}

func TestLooksLikeBareCity(t *testing.T) {
	assert.True(t, LooksLikeBareCity("São Paulo"))
	assert.True(t, LooksLikeBareCity("Rio de Janeiro"))
	assert.False(t, LooksLikeBareCity("Previsão do tempo"))
	assert.False(t, LooksLikeBareCity("Qual é a melhor marca de carro?"))
	assert.False(t, LooksLikeBareCity("SP"))
	assert.False(t, LooksLikeBareCity("uma cidade muito longe daqui"))
}

func TestStateHint(t *testing.T) {
	tests := []struct {
		input, name, state string
	}{
		{"Campinas SP", "Campinas", "SP"},
		{"Campinas - sp", "Campinas", "SP"},
		{"Bom Jesus/PI", "Bom Jesus", "PI"},
		{"Rio de Janeiro", "Rio de Janeiro", ""},
		{"Campinas XX", "Campinas XX", ""},
	}
	for _, tt := range tests {
		name, state := StateHint(tt.input)
		assert.Equal(t, tt.name, name, tt.input)
		assert.Equal(t, tt.state, state, tt.input)
	}
}

func TestBestCityNameBoundedOnLongInput(t *testing.T) {
	input := "tempo carro " + strings.Repeat("Abc ", 4000) + "carro"

	start := time.Now()
	got, ok := BestCityName(input)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, ok)
	assert.Len(t, strings.Fields(got), maxCityWords)

	start = time.Now()
	got, ok = longestCityRun(input)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, ok)
	assert.Len(t, strings.Fields(got), maxCityWords)
}

func TestLongestCityRunKeepsLongNames(t *testing.T) {
	got, ok := longestCityRun("São José do Vale do Rio Preto")
	assert.True(t, ok)
	assert.Equal(t, "São José do Vale do Rio Preto", got)
}

func TestClipInput(t *testing.T) {
	assert.Equal(t, "Recife", ClipInput("Recife"))

	long := strings.Repeat("ã", MaxInputRunes+500)
	clipped := ClipInput(long)
	assert.Equal(t, MaxInputRunes, utf8.RuneCountInString(clipped))
	assert.True(t, utf8.ValidString(clipped))
}
