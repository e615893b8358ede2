package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/astralabs/astra/internal/plan"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeResolve     EventType = "resolve"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeReport      EventType = "report"
	EventTypeHeartbeat   EventType = "heartbeat"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	Intent    string    `json:"intent,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	trailPath string
	maxSize   int64
}

func NewLogger() *Logger {
	return &Logger{
		trailPath: filepath.Join("logs", "pipeline.jsonl"),
		maxSize:   10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	// Execution reports also go to the on-disk trail.
	if evt.Type == EventTypeReport {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.trailPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.trailPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.trailPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.trailPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.trailPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogResolve(utterance, intent string, steps int) {
	l.Log(Event{
		Type:   EventTypeResolve,
		Intent: intent,
		Data: map[string]any{
			"utterance": utterance,
			"steps":     steps,
		},
	})
}

func (l *Logger) LogPolicyCheck(intent, effect, reason string) {
	l.Log(Event{
		Type:   EventTypePolicyCheck,
		Intent: intent,
		Data: map[string]string{
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogReport(intent string, report plan.Report) {
	l.Log(Event{
		Type:   EventTypeReport,
		Intent: intent,
		Data:   report,
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}
