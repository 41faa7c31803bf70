package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"facturas/internal/report"
)

// ExportMessage carries a rendered summary to the export worker. Tables are
// already flattened to text so the worker needs no domain types.
type ExportMessage struct {
	BatchID   string             `json:"batch_id"`
	Title     string             `json:"title"`
	Filter    string             `json:"filter,omitempty"`
	Tables    []report.FlatTable `json:"tables"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewExportMessage stamps a message with the current time.
func NewExportMessage(batchID, title string, tables []report.FlatTable) *ExportMessage {
	return &ExportMessage{
		BatchID:   batchID,
		Title:     title,
		Tables:    tables,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportMessageFromJSON decodes a message and checks it names a batch.
func ExportMessageFromJSON(data []byte) (*ExportMessage, error) {
	var msg ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BatchID == "" {
		return nil, fmt.Errorf("export message without batch id")
	}
	return &msg, nil
}
