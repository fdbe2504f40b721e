package recorder

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrEmptyKey is returned when a record has no key.
var ErrEmptyKey = errors.New("traffic record has empty key")

// Recorder captures traffic records for later replay.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []TrafficRecord
	enc     *json.Encoder // optional NDJSON stream
}

// New creates a Recorder. If w is non-nil, records are also written to w as
// newline-delimited JSON as they arrive.
func New(w io.Writer) *Recorder {
	r := &Recorder{}
	if w != nil {
		r.enc = json.NewEncoder(w)
	}
	return r
}

// Record captures a single traffic record.
func (r *Recorder) Record(rec TrafficRecord) error {
	if rec.Key == "" {
		return ErrEmptyKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	if r.enc != nil {
		if err := r.enc.Encode(rec); err != nil {
			return fmt.Errorf("streaming record: %w", err)
		}
	}
	return nil
}

// Records returns a copy of all recorded traffic.
func (r *Recorder) Records() []TrafficRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TrafficRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of recorded items.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// ExportJSON writes all records to w as an indented JSON array.
func (r *Recorder) ExportJSON(w io.Writer) error {
	return WriteJSON(w, r.Records())
}

// ExportFile writes all records to a file as a JSON array.
func (r *Recorder) ExportFile(path string) error {
	return WriteFile(path, r.Records())
}

// WriteJSON writes records to w as an indented JSON array.
func WriteJSON(w io.Writer, records []TrafficRecord) error {
	if records == nil {
		records = []TrafficRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteFile writes records to path as a JSON array.
func WriteFile(path string, records []TrafficRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating traffic file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return WriteJSON(f, records)
}

// LoadJSON reads traffic records from either a JSON array or a stream of
// newline-delimited records, as written by a streaming Recorder.
func LoadJSON(r io.Reader) ([]TrafficRecord, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var records []TrafficRecord
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decoding traffic array: %w", err)
		}
		return records, nil
	}

	var records []TrafficRecord
	for {
		var rec TrafficRecord
		err := dec.Decode(&rec)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding traffic record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
}

// LoadFile reads traffic records from path.
func LoadFile(path string) ([]TrafficRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening traffic file: %w", err)
	}
	defer f.Close()
	return LoadJSON(f)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// EventWriter streams decision events as newline-delimited JSON.
// Safe for concurrent use.
type EventWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewEventWriter creates an EventWriter on w.
func NewEventWriter(w io.Writer) *EventWriter {
	return &EventWriter{enc: json.NewEncoder(w)}
}

// Write encodes one event.
func (ew *EventWriter) Write(ev DecisionEvent) error {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	return ew.enc.Encode(ev)
}
