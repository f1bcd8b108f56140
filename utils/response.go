package utils

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"donamaha/apperr"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err in the response envelope. Unclassified and integrity
// errors are logged and reported as a generic failure.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error("[http] request failed", "method", r.Method, "path", r.URL.Path, "request_id", RequestID(r), "error", err)
		WriteJSON(w, status, APIResponse{Success: false, Message: "Terjadi kesalahan sistem, silakan coba lagi"})
		return
	}
	var ae *apperr.Error
	resp := APIResponse{Success: false, Message: err.Error()}
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		if len(ae.Fields) > 0 {
			resp.Errors = ae.Fields
		}
	}
	WriteJSON(w, status, resp)
}

// GetStringValue returns the value of a nullable string pointer or empty string if nil
func GetStringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
