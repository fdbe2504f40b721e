package recorder

import (
	"io"

	internalrecorder "github.com/SmitUplenchwar2687/throttle/internal/recorder"
)

// TrafficRecord is a single captured acquire attempt.
type TrafficRecord = internalrecorder.TrafficRecord

// DecisionEvent pairs a traffic record with the produced decision.
type DecisionEvent = internalrecorder.DecisionEvent

// Recorder captures traffic records for later replay.
type Recorder = internalrecorder.Recorder

// EventWriter streams decision events as newline-delimited JSON.
type EventWriter = internalrecorder.EventWriter

// New creates a new Recorder.
func New(w io.Writer) *Recorder {
	return internalrecorder.New(w)
}

// NewEventWriter creates an EventWriter on w.
func NewEventWriter(w io.Writer) *EventWriter {
	return internalrecorder.NewEventWriter(w)
}

// LoadJSON reads traffic records from a JSON array or NDJSON stream.
func LoadJSON(r io.Reader) ([]TrafficRecord, error) {
	return internalrecorder.LoadJSON(r)
}

// LoadFile reads traffic records from path.
func LoadFile(path string) ([]TrafficRecord, error) {
	return internalrecorder.LoadFile(path)
}

// WriteFile writes records to path as a JSON array.
func WriteFile(path string, records []TrafficRecord) error {
	return internalrecorder.WriteFile(path, records)
}
