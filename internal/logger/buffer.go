package logger

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// LogEntry represents a single log entry in the buffer
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer is a thread-safe ring buffer of the most recent log entries. It
// accepts JSON lines from a zap core through Write.
type LogBuffer struct {
	mu           sync.Mutex
	ringBuffer   []LogEntry
	maxSize      int
	currentIndex int
	wrapped      bool

	totalEntries uint64
}

// NewLogBuffer creates a buffer holding up to maxSize entries.
func NewLogBuffer(maxSize int) *LogBuffer {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LogBuffer{
		ringBuffer: make([]LogEntry, maxSize),
		maxSize:    maxSize,
	}
}

// Add adds a new log entry to the buffer
func (lb *LogBuffer) Add(level, message string, fields map[string]interface{}) {
	lb.add(LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Fields:    fields,
	})
}

func (lb *LogBuffer) add(entry LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.ringBuffer[lb.currentIndex] = entry
	lb.currentIndex = (lb.currentIndex + 1) % lb.maxSize
	if lb.currentIndex == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++
}

// Write decodes one or more JSON log lines. Lines that are not JSON are
// kept verbatim as info messages.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		if line == "" {
			continue
		}
		lb.add(parseLine(line))
	}
	return len(p), nil
}

// Sync satisfies zapcore.WriteSyncer.
func (lb *LogBuffer) Sync() error { return nil }

func parseLine(line string) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{Timestamp: time.Now(), Level: "info", Message: line}
	}

	entry := LogEntry{Timestamp: time.Now()}
	if s, ok := raw["time"].(string); ok {
		if ts, err := time.Parse("2006-01-02T15:04:05.000Z0700", s); err == nil {
			entry.Timestamp = ts
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	delete(raw, "time")
	delete(raw, "level")
	delete(raw, "msg")
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry
}

// GetRecentLogs returns up to limit of the newest entries, oldest first. A
// limit of zero returns everything held.
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.currentIndex
	if lb.wrapped {
		count = lb.maxSize
	}
	if limit > 0 && limit < count {
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	// newest entry sits just before currentIndex
	start := lb.currentIndex - count
	for i := 0; i < count; i++ {
		index := ((start+i)%lb.maxSize + lb.maxSize) % lb.maxSize
		logs = append(logs, lb.ringBuffer[index])
	}
	return logs
}

// Total returns how many entries were ever added.
func (lb *LogBuffer) Total() uint64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries
}
