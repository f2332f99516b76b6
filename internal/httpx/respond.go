package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/sweetshop/api/internal/apperr"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the error taxonomy onto HTTP statuses; unclassified
// errors become a bare 500 so nothing internal leaks.
func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(apperr.CodeOf(err)), map[string]string{"error": apperr.Message(err)})
}

func statusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidArgument, apperr.CodeInsufficientStock:
		return http.StatusBadRequest
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
