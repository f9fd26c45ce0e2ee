// Package notice carries non-blocking user notifications produced while a
// form is edited or submitted.
package notice

import "time"

// Level is the severity shown to the user.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notice is one notification.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// New creates a notice stamped with the current time.
func New(level Level, message string) Notice {
	return Notice{Level: level, Message: message, At: time.Now().UTC()}
}

// Warning creates a warning notice.
func Warning(message string) Notice { return New(LevelWarning, message) }

// Log is an ordered, bounded list of notices.
type Log struct {
	items []Notice
	max   int
}

// NewLog creates a log that keeps the latest max notices.
func NewLog(max int) *Log {
	if max <= 0 {
		max = 20
	}
	return &Log{max: max}
}

// Add appends n, dropping the oldest entry when full.
func (l *Log) Add(n Notice) {
	l.items = append(l.items, n)
	if len(l.items) > l.max {
		l.items = l.items[len(l.items)-l.max:]
	}
}

// Items returns a copy of the notices, oldest first.
func (l *Log) Items() []Notice {
	out := make([]Notice, len(l.items))
	copy(out, l.items)
	return out
}
