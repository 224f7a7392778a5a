// Package lexicon holds the fixed Portuguese/English word sets used to
// recognise weather and postal intents and to reject non-city tokens.
//
// All sets are built once at init and are read-only afterwards.
package lexicon

import (
	"strings"
	"unicode"
)

var weatherWords = []string{
	"previsão", "previsao", "previsões", "previsoes", "prever", "previsto",
	"tempo",
	"clima", "climatico", "climático", "climatica", "climática",
	"temperatura", "temperaturas", "quente", "frio", "fria", "calor",
	"chuva", "chuvoso", "chuvosa", "chover", "chovendo",
	"sol", "ensolarado", "ensolarada", "solar",
	"nublado", "nublada", "nuvem", "nuvens",
	"vento", "ventoso", "ventosa", "ventando",
	"umidade", "umido", "úmido", "umida", "úmida",
	"pressao", "pressão", "atmosferica", "atmosférica",
	"meteorologico", "meteorológico", "meteorologica", "meteorológica", "meteorologia",
	"forecast", "weather", "climate", "temperature", "rain", "sunny", "cloudy", "windy", "humid",
}

var postalWords = []string{
	"cep", "endereço", "endereco", "rua", "avenida", "bairro", "cidade", "estado",
	"localização", "localizacao", "localidade", "local", "loc",
	"zip", "postal", "code", "address", "street", "avenue", "neighborhood", "city", "state", "location",
}

// anchorWords introduce a place in sentence templates ("clima em Recife",
// "previsão Recife"). Each one is also a weather or postal keyword.
var anchorWords = []string{
	"previsão", "previsao", "previsões", "previsoes",
	"tempo", "clima", "temperatura", "chuva", "forecast", "weather",
	"cidade", "city", "localidade",
}

// templateConnectives are the prepositions a template accepts between an
// anchor and the place.
var templateConnectives = []string{"em", "para", "de", "do", "da", "no", "na", "in", "for", "of"}

// Connectives may appear inside a city name ("Rio de Janeiro") but never
// at its edges.
var connectiveWords = []string{
	"em", "para", "de", "do", "da", "dos", "das", "no", "na", "nos", "nas", "e",
	"in", "for", "of", "at", "to",
}

var grammarWords = []string{
	"o", "a", "os", "as", "um", "uma",
	"como", "está", "esta", "estará", "qual", "quais", "que", "quando", "onde",
	"quero", "queria", "saber", "gostaria", "me", "meu", "minha", "por", "favor",
	"vai", "vou", "ver", "é", "ser", "fica", "hoje", "amanhã", "amanha", "agora",
	"semana", "próximos", "proximos", "dias", "fim",
	"olá", "ola", "oi", "obrigado", "obrigada", "tchau",
	"what", "how", "is", "the", "will", "be", "please", "today", "tomorrow", "now", "week",
	"hello", "hi", "thanks",
}

var objectWords = []string{
	"massa", "pizza", "comida", "receita", "carro", "moto", "casa", "trabalho",
	"escola", "hospital", "banco", "loja", "mercado", "restaurante",
	"mass", "food", "recipe", "car", "motorcycle", "house", "work", "school",
	"bank", "store", "market", "restaurant",
}

var (
	weather    = toSet(weatherWords)
	postal     = toSet(postalWords)
	connective = toSet(connectiveWords)
	nonCity    = toSet(weatherWords, postalWords, grammarWords, objectWords)
)

func toSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range list {
			set[w] = struct{}{}
		}
	}
	return set
}

// Tokens splits s into lowercased runs of letters.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func IsWeatherWord(w string) bool {
	_, ok := weather[strings.ToLower(w)]
	return ok
}

func IsPostalWord(w string) bool {
	_, ok := postal[strings.ToLower(w)]
	return ok
}

func IsConnective(w string) bool {
	_, ok := connective[strings.ToLower(w)]
	return ok
}

// IsNonCityWord reports whether w can never be part of a city name. The set
// covers both keyword lexicons plus grammatical, temporal and object words.
func IsNonCityWord(w string) bool {
	_, ok := nonCity[strings.ToLower(w)]
	return ok
}

// HasWeatherKeyword reports whether any token of s is a weather keyword.
func HasWeatherKeyword(s string) bool {
	return anyToken(s, IsWeatherWord)
}

// HasPostalKeyword reports whether any token of s is a postal/address keyword.
func HasPostalKeyword(s string) bool {
	return anyToken(s, IsPostalWord)
}

func anyToken(s string, pred func(string) bool) bool {
	for _, t := range Tokens(s) {
		if pred(t) {
			return true
		}
	}
	return false
}

// AnchorWords returns a copy of the template anchor words.
func AnchorWords() []string {
	return append([]string(nil), anchorWords...)
}

// TemplateConnectives returns a copy of the connectives used in templates.
func TemplateConnectives() []string {
	return append([]string(nil), templateConnectives...)
}
