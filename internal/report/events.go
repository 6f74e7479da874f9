package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventIndex   EventType = "index"   // a directory or file row was created
	EventPrune   EventType = "prune"   // a row was removed because its path vanished
	EventSkip    EventType = "skip"    // a filesystem entry was ignored
	EventMeta    EventType = "meta"    // metadata extraction finished for a file
	EventArtwork EventType = "artwork" // artwork resolution finished for a path
	EventError   EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single pipeline event
type Event struct {
	Timestamp time.Time         `json:"ts"`
	RunID     string            `json:"run_id"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Path      string            `json:"path,omitempty"`
	Kind      string            `json:"kind,omitempty"` // "file" or "dir"
	Source    string            `json:"source,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Bytes     int64             `json:"bytes,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file. A nil *EventLogger is valid
// and discards everything.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates outputDir if needed and opens a new event log in it
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runID := uuid.NewString()
	filename := fmt.Sprintf("events-%s-%s.jsonl", time.Now().Format("20060102-150405"), runID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogIndex logs a newly indexed directory or file
func (l *EventLogger) LogIndex(kind, path string) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventIndex,
		Kind:  kind,
		Path:  path,
	})
}

// LogPrune logs rows removed for a vanished path. For directories, files and
// dirs count the whole removed subtree.
func (l *EventLogger) LogPrune(kind, path string, files, dirs int) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventPrune,
		Kind:  kind,
		Path:  path,
		Extra: map[string]string{
			"files": fmt.Sprintf("%d", files),
			"dirs":  fmt.Sprintf("%d", dirs),
		},
	})
}

// LogSkip logs a filesystem entry that was not indexed
func (l *EventLogger) LogSkip(path, reason string) error {
	return l.Log(&Event{
		Level:  LevelDebug,
		Event:  EventSkip,
		Path:   path,
		Reason: reason,
	})
}

// LogMeta logs a metadata extraction result. A nil err with found=false
// means the tags were unreadable and the file was stamped without metadata.
func (l *EventLogger) LogMeta(path string, found bool, err error) error {
	level := LevelInfo
	reason := ""
	errMsg := ""
	switch {
	case err != nil:
		level = LevelError
		errMsg = err.Error()
	case !found:
		level = LevelWarning
		reason = "unreadable tags"
	}

	return l.Log(&Event{
		Level:  level,
		Event:  EventMeta,
		Path:   path,
		Reason: reason,
		Error:  errMsg,
	})
}

// LogArtwork logs the outcome of an artwork resolution
func (l *EventLogger) LogArtwork(path, source string, size int64, duration time.Duration) error {
	level := LevelInfo
	reason := ""
	if source == "" {
		level = LevelDebug
		reason = "not found"
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventArtwork,
		Path:     path,
		Source:   source,
		Reason:   reason,
		Bytes:    size,
		Duration: duration.Milliseconds(),
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Path:  path,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the identifier stamped on every event of this log
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
