package api

import (
	"encoding/json"
	"net/http"

	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/repository"
)

// envelope is the body of every non-repository response. Repository
// responses use repository.Result, which has the same shape.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func failure(message string) envelope {
	return envelope{Success: false, Message: message}
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to write response: %v", err)
	}
}

// writeResult writes a repository result, choosing successStatus or
// failureStatus from its success flag.
func writeResult[T any](w http.ResponseWriter, result repository.Result[T], successStatus, failureStatus int) {
	status := successStatus
	if !result.Success {
		status = failureStatus
	}
	writeEnvelope(w, status, result)
}
