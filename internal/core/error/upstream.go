package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Resource names the upstream BrasilAPI resource a failure came from. Each
// resource maps statuses slightly differently.
type Resource string

const (
	ResourceCEP        Resource = "cep"
	ResourceLocalidade Resource = "localidade"
	ResourcePrevisao   Resource = "previsao"
)

// cptecNoForecast is the body message CPTEC returns with a 500 when the city
// exists but has no forecast published.
const cptecNoForecast = "Erro ao buscar previsões para a cidade"

// FromStatus translates a non-2xx upstream response into an AppError.
// bodyMessage is the "message" field of the error body, when present.
func FromStatus(res Resource, status int, statusText, bodyMessage string) *AppError {
	switch status {
	case http.StatusNotFound:
		return NotFound(res)
	case http.StatusBadRequest:
		if res == ResourceCEP {
			return NewCode(CodeGeneric, status, fmt.Sprintf("erro na consulta: %d %s", status, statusText), nil)
		}
		return Invalid(res, "")
	case http.StatusGatewayTimeout:
		// BrasilAPI answers 504 for every CEP that does not exist.
		if res == ResourceCEP {
			return Invalid(res, "")
		}
		return NewCode(CodeGeneric, status, fmt.Sprintf("erro na consulta: %d %s", status, statusText), nil)
	case http.StatusRequestTimeout:
		return Timeout(res, nil)
	case http.StatusInternalServerError:
		if res == ResourcePrevisao && strings.TrimSpace(bodyMessage) == cptecNoForecast {
			return NewCode(CodeNoForecast, http.StatusBadRequest, "não há previsões definidas para essa cidade", nil)
		}
		return ServerError(res, nil)
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return ServerError(res, nil)
	default:
		return NewCode(CodeGeneric, status, fmt.Sprintf("erro na consulta: %d %s", status, statusText), nil)
	}
}

// FromTransport classifies a failure that happened before any response was
// received.
func FromTransport(res Resource, err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(res, err)
	}
	return NewCode(CodeNetworkError, http.StatusBadGateway, fmt.Sprintf("falha de rede ao consultar %s", res), err)
}

// NotFound builds the resource specific not-found error.
func NotFound(res Resource) *AppError {
	switch res {
	case ResourceCEP:
		return NewCode(CodeCEPNotFound, http.StatusNotFound, "CEP inexistente", nil)
	case ResourceLocalidade:
		return NewCode(CodeLocalidadeNotFound, http.StatusNotFound, "localidade não encontrada", nil)
	default:
		return NewCode(CodePrevisaoNotFound, http.StatusNotFound, "previsão não encontrada", nil)
	}
}

// Invalid builds the resource specific bad-request error. An empty message
// selects the default wording.
func Invalid(res Resource, message string) *AppError {
	var code Code
	var def string
	switch res {
	case ResourceCEP:
		code, def = CodeCEPInvalid, "CEP inexistente ou inválido"
	case ResourceLocalidade:
		code, def = CodeLocalidadeInvalid, "nome da cidade inválido"
	default:
		code, def = CodePrevisaoInvalid, "código da cidade inválido"
	}
	if message == "" {
		message = def
	}
	return NewCode(code, http.StatusBadRequest, message, nil)
}

// Timeout builds a timeout error for res.
func Timeout(res Resource, err error) *AppError {
	return NewCode(CodeTimeout, http.StatusRequestTimeout, fmt.Sprintf("timeout na consulta de %s", res), err)
}

// ServerError builds an upstream server error for res.
func ServerError(res Resource, err error) *AppError {
	return NewCode(CodeServerError, http.StatusInternalServerError, fmt.Sprintf("erro no servidor ao consultar %s", res), err)
}

// BadRequest is a caller input error unrelated to an upstream resource.
func BadRequest(message string, err error) *AppError {
	return NewCode(CodeBadRequest, http.StatusBadRequest, message, err)
}
