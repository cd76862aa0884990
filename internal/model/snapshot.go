package model

import "time"

type Snapshot struct {
	Source      string        `json:"source"`
	Replica     string        `json:"replica"`
	Interval    time.Duration `json:"interval"`
	StartedAt   time.Time     `json:"started_at"`
	Ticks       int           `json:"ticks"`
	Failed      int           `json:"failed"`
	LastTick    *time.Time    `json:"last_tick"`
	LastError   string        `json:"last_error,omitempty"`
	LastCopied  int           `json:"last_copied"`
	LastRemoved int           `json:"last_removed"`
	LastBytes   int64         `json:"last_bytes"`
}
