package utils

import (
	"encoding/json"

	"chatroom/internal/logger"
)

// JSONWriter is the write half of a websocket connection.
type JSONWriter interface {
	WriteJSON(v interface{}) error
}

// SafeJSONParse parses JSON safely
func SafeJSONParse(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// SendJSON sends a JSON payload to a WebSocket connection.
// Connections are not safe for concurrent writes; the caller serializes.
func SendJSON(w JSONWriter, payload interface{}) error {
	return w.WriteJSON(payload)
}

// LogError logs an error if it's not nil
func LogError(err error, context string) {
	if err != nil {
		logger.Error("error", err, "context", context)
	}
}
