package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-moviebooking/internal/apperr"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its HTTP status and writes a JSON error body.
func WriteError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	WriteJSON(w, status, map[string]interface{}{
		"statusCode": status,
		"message":    apperr.Message(err),
	})
}
