package utils

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/legalconnect/legalconnect-server/cmd/models"
)

// Envelope is the response shape the SPA expects.
type Envelope struct {
	Success bool        `json:"success"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: true, Data: data, Message: message})
}

// WriteList adds the count field the list endpoints include.
func WriteList(w http.ResponseWriter, count int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Envelope{Success: true, Count: &count, Data: data})
}

// WriteError maps the error taxonomy onto a status code. The underlying
// error detail is only exposed outside production.
func WriteError(w http.ResponseWriter, err error, message string) {
	envelope := Envelope{Success: false, Message: message}
	if envelope.Message == "" {
		envelope.Message = err.Error()
	}
	if os.Getenv("ENV") != "production" && err != nil {
		envelope.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(models.HTTPStatus(err))
	json.NewEncoder(w).Encode(envelope)
}
