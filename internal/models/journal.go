package models

import "time"

type LogKind string

const (
	LogTrade   LogKind = "trade"
	LogSuccess LogKind = "success"
	LogFail    LogKind = "fail"
)

// LogEntry is an append-only journal record.
type LogEntry struct {
	ID        string         `json:"id"`
	Kind      LogKind        `json:"log_type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}
