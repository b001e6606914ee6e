package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeBreakdown   EventType = "breakdown"
	EventTypeContent     EventType = "content"
	EventTypeStep        EventType = "step"
	EventTypeToolCall    EventType = "tool_call"
	EventTypeToolResult  EventType = "tool_result"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeCost        EventType = "cost"
	EventTypeHeartbeat   EventType = "heartbeat"
	EventTypeLLM         EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id,omitempty"`
	StepID    string    `json:"step_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	llmLogPath string
	maxSize    int64
}

// NewLogger writes events to stdout and mirrors llm events to llmLogPath.
// An empty path disables the mirror; maxSizeMB <= 0 means 10MB.
func NewLogger(llmLogPath string, maxSizeMB int) *Logger {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &Logger{
		out:        os.Stdout,
		llmLogPath: llmLogPath,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
	}
}

// SetOutput redirects the event stream.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf("{\"error\": \"failed to marshal event: %v\"}", err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	termMu.Lock()
	fmt.Fprintln(l.out, string(data))
	termMu.Unlock()

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

// keep one .old file
func (l *Logger) rotateLogs() {
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

func (l *Logger) LogBreakdown(chatID, task string, steps int, err error) {
	data := map[string]any{"task": task, "steps": steps}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypeBreakdown, ChatID: chatID, Data: data})
}

func (l *Logger) LogStep(chatID, stepID string, index int, status string) {
	l.Log(Event{
		Type:   EventTypeStep,
		ChatID: chatID,
		StepID: stepID,
		Data: map[string]any{
			"index":  index,
			"status": status,
		},
	})
}

func (l *Logger) LogToolCall(tool, args string) {
	l.Log(Event{
		Type: EventTypeToolCall,
		Data: map[string]string{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogPolicy(chatID, effect, reason string) {
	l.Log(Event{
		Type:   EventTypePolicyCheck,
		ChatID: chatID,
		Data: map[string]string{
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogCost(promptTokens, completionTokens int, model string) {
	l.Log(Event{
		Type: EventTypeCost,
		Data: map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
			"model":             model,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(op string, prompt any, response string, toolCalls any) {
	l.Log(Event{
		Type: EventTypeLLM,
		Data: map[string]any{
			"op":         op,
			"prompt":     prompt,
			"response":   response,
			"tool_calls": toolCalls,
		},
	})
}
