package middleware

import (
	"encoding/json"
	"net/http"

	"exam-portal/internal/model"
)

// writeJSONError writes the standard failure envelope. The top-level message
// mirrors error.message for clients that only read one of them.
func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Message: message,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
