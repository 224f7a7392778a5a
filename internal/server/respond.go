package server

import (
	"encoding/json"
	"net/http"

	errx "github.com/cepclima/server/internal/core/error"
	logx "github.com/cepclima/server/pkg/logger"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    errx.Code `json:"code"`
	Message string    `json:"message"`
	Status  int       `json:"status"`
}

// RespondJSON writes data as JSON with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logx.Warn().Err(err).Msg("failed to encode response")
	}
}

// RespondError maps err through errx and writes the user-facing message.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errx.StatusOf(err)
	if status >= 500 {
		logx.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("request failed")
	}
	code := errx.CodeOf(err)
	msg := errx.UserMessage(err)
	if code == errx.CodeBadRequest {
		msg = errx.Resolve(err).Message
	}
	RespondJSON(w, status, ErrorBody{Code: code, Message: msg, Status: status})
}
