package errx

// Code is a stable, machine readable error identifier shared with clients.
type Code string

const (
	CodeCEPNotFound Code = "CEP_NOT_FOUND"
	CodeCEPInvalid  Code = "CEP_INVALID"

	CodeLocalidadeNotFound Code = "LOCALIDADE_NOT_FOUND"
	CodeLocalidadeInvalid  Code = "LOCALIDADE_INVALID"

	CodePrevisaoNotFound Code = "PREVISAO_NOT_FOUND"
	CodePrevisaoInvalid  Code = "PREVISAO_INVALID"
	CodeNoForecast       Code = "NO_FORECAST"

	CodeTimeout            Code = "TIMEOUT"
	CodeServerError        Code = "SERVER_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeNetworkError       Code = "NETWORK_ERROR"

	CodeBadRequest Code = "BAD_REQUEST"
	CodeRedis      Code = "REDIS_ERROR"
	CodeGeneric    Code = "GENERIC_ERROR"
)

var userMessages = map[Code]string{
	CodeCEPNotFound:        "❌ CEP não encontrado. Verifique se o CEP está correto e tente novamente.",
	CodeCEPInvalid:         "❌ CEP inválido. Digite apenas números (exemplo: 01310-100).",
	CodeLocalidadeNotFound: "🏙️ Localidade não encontrada. Verifique o nome da cidade e tente novamente.",
	CodeLocalidadeInvalid:  "🏙️ Nome da cidade inválido. Verifique e tente novamente.",
	CodePrevisaoNotFound:   "🌤️ Previsão não encontrada para esta cidade.",
	CodePrevisaoInvalid:    "🌤️ Código da cidade inválido para previsão.",
	CodeNoForecast:         "🌤️ Previsão do tempo não disponível para esta cidade no momento. Tente outra cidade ou CEP.",
	CodeTimeout:            "⏰ Tempo limite excedido. Nossos servidores estão ocupados, tente novamente em alguns segundos.",
	CodeServerError:        "🔧 Erro interno do servidor. Tente novamente em alguns minutos.",
	CodeServiceUnavailable: "🔧 Nossos serviços estão temporariamente indisponíveis. Tente novamente em alguns minutos.",
	CodeNetworkError:       "🌐 Problema de conexão. Verifique sua internet e tente novamente.",
	CodeGeneric:            "❌ Erro inesperado. Tente novamente ou entre em contato com o suporte.",
}

// UserMessage returns the end-user wording for err's code.
func UserMessage(err error) string {
	if msg, ok := userMessages[CodeOf(err)]; ok {
		return msg
	}
	return userMessages[CodeGeneric]
}
