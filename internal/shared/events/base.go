package events

import (
	"encoding/json"
	"time"
)

// IntegrationEvent es el sobre común de todo evento entre procesos.
// Data lleva el payload específico del tipo.
type IntegrationEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}
