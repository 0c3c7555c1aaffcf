package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DefaultRetention is how long journal entries are kept.
	DefaultRetention = 7 * 24 * time.Hour

	// rotationCheckInterval is how often (in entries) retention is enforced.
	rotationCheckInterval = 200
)

// Entry is one line of the refresh journal.
type Entry struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Journal appends bus events to a JSONL file and drops entries older than
// the retention window.
type Journal struct {
	path       string
	retention  time.Duration
	mu         sync.Mutex
	file       *os.File
	count      int
	lastRotate time.Time
}

// OpenJournal opens (or creates) the journal at path.
func OpenJournal(path string, retention time.Duration) (*Journal, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Journal{path: path, retention: retention, file: f, lastRotate: time.Now()}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Attach records every event published on bus until the returned func runs.
func (j *Journal) Attach(bus *EventBus) UnsubscribeFunc {
	return bus.SubscribeAll(func(e BusEvent) {
		_ = j.Record(e)
	})
}

// Record writes one event.
func (j *Journal) Record(e BusEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	line, err := json.Marshal(Entry{Type: e.EventType(), Timestamp: e.EventTimestamp(), Data: data})
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return os.ErrClosed
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	j.count++
	if j.count%rotationCheckInterval == 0 && time.Since(j.lastRotate) > time.Hour {
		j.lastRotate = time.Now()
		if err := j.pruneLocked(time.Now().Add(-j.retention)); err != nil {
			return fmt.Errorf("pruning journal: %w", err)
		}
	}
	return nil
}

// Prune removes entries recorded before cutoff.
func (j *Journal) Prune(cutoff time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pruneLocked(cutoff)
}

func (j *Journal) pruneLocked(cutoff time.Time) error {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return err
	}

	var kept bytes.Buffer
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		if e.Timestamp.Before(cutoff) {
			continue
		}
		kept.Write(line)
		kept.WriteByte('\n')
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, kept.Bytes(), 0o644); err != nil {
		return err
	}
	if j.file != nil {
		j.file.Close()
	}
	if err := os.Rename(tmp, j.path); err != nil {
		os.Remove(tmp)
		return err
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		j.file = nil
		return err
	}
	j.file = f
	return nil
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// ReadJournal returns the last limit entries of the journal at path, oldest
// first. A missing file yields no entries.
func ReadJournal(path string, limit int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
		if limit > 0 && len(entries) > limit {
			entries = entries[1:]
		}
	}
	return entries, scanner.Err()
}
