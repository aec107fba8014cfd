package entity

import (
	"time"

	"github.com/google/uuid"
)

// RawRecord represents a record that is not processed yet and was received from a record source.
type RawRecord struct {
	Source     string    `json:"source"`
	Data       []byte    `json:"data"`
	ReceivedAt time.Time `json:"received_at"`
}

// Record is a decoded record: a flat mapping from attribute name to value.
// Values are float64, string, bool or nil.
type Record struct {
	ID         uuid.UUID      `json:"id"`
	Source     string         `json:"source"`
	Fields     map[string]any `json:"fields"`
	ReceivedAt time.Time      `json:"received_at"`
}

// Verdict is the outcome of evaluating one record against one rule.
type Verdict struct {
	ID          uuid.UUID      `json:"id"`
	RecordID    uuid.UUID      `json:"record_id"`
	RuleName    string         `json:"rule_name"`
	Source      string         `json:"source"`
	Matched     bool           `json:"matched"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
}
