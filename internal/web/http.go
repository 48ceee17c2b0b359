package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"pwmctl/internal/pwm"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respond writes data as JSON with code. An error value is wrapped in
// errorResponse; nil writes no body.
func respond(w http.ResponseWriter, data any, code int) {
	var resp any
	if err, ok := data.(error); ok {
		resp = errorResponse{Error: err.Error()}
	} else {
		resp = data
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if resp != nil {
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// statusFor maps controller errors to HTTP status codes.
func statusFor(err error) int {
	var invalid *pwm.InvalidArgumentError
	var notExported *pwm.NotExportedError
	switch {
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notExported):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
