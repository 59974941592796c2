package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Event is one element of an inbound relay batch.
type Event struct {
	Host            string          `json:"host"`
	VIP             string          `json:"vip"`
	SourceType      string          `json:"sourcetype"`
	DestinationPort json.Number     `json:"destinationPort,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
	// LegacyRaw is the Splunk/Cribl spelling, used only when Raw is absent.
	LegacyRaw json.RawMessage `json:"_raw,omitempty"`
}

// RawBytes returns the event payload. A JSON string yields its decoded value;
// any other JSON value yields its JSON text. Absent or null yields nil.
func (e *Event) RawBytes() []byte {
	raw := e.Raw
	if isAbsent(raw) {
		raw = e.LegacyRaw
	}
	if isAbsent(raw) {
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return []byte(raw)
}

// HasPort reports whether destinationPort was supplied.
func (e *Event) HasPort() bool {
	return e.DestinationPort != ""
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Batch is the ordered sequence of undecoded event records of one request.
// Records are decoded one at a time so a bad record only fails itself.
type Batch []json.RawMessage

// ErrEmptyBody is returned by ParseBatch for a body with no JSON content.
var ErrEmptyBody = errors.New("empty body")

// ParseBatch splits a request body into event records. The body is either a
// JSON array, or one or more JSON objects (a single event or NDJSON).
func ParseBatch(body []byte) (Batch, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyBody
	}

	switch trimmed[0] {
	case '[':
		var batch Batch
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("decode event array: %w", err)
		}
		return batch, nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		var batch Batch
		for {
			var record json.RawMessage
			err := dec.Decode(&record)
			if errors.Is(err, io.EOF) {
				return batch, nil
			}
			if err != nil {
				return nil, fmt.Errorf("decode event %d: %w", len(batch), err)
			}
			if len(record) == 0 || record[0] != '{' {
				return nil, fmt.Errorf("decode event %d: expected JSON object", len(batch))
			}
			batch = append(batch, record)
		}
	default:
		return nil, fmt.Errorf("body must be a JSON array or object, got %q", trimmed[0])
	}
}

// DecodeEvent decodes a single batch record.
func DecodeEvent(record json.RawMessage) (Event, error) {
	var event Event
	if err := json.Unmarshal(record, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// DispatchReport counts the outcome of every event in a batch.
type DispatchReport struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// BatchResponse is the 200 body of the relay endpoint.
type BatchResponse struct {
	Status string `json:"status"`
	DispatchReport
}

// NewBatchResponse wraps a report in an "ok" acknowledgment.
func NewBatchResponse(report DispatchReport) BatchResponse {
	return BatchResponse{Status: "ok", DispatchReport: report}
}
