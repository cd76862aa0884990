package model

import "time"

type ActionType string

const (
	ActionCopied  ActionType = "COPIED"
	ActionRemoved ActionType = "REMOVED"
)

type Action struct {
	Type ActionType
	Name string
	Size int64
}

// TickResult describes one synchronization run. Actions holds everything
// completed before Err, if any.
type TickResult struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Actions    []Action
	Err        error
}

func (r TickResult) Count(t ActionType) int {
	n := 0
	for _, a := range r.Actions {
		if a.Type == t {
			n++
		}
	}

	return n
}

func (r TickResult) BytesCopied() int64 {
	var total int64
	for _, a := range r.Actions {
		if a.Type == ActionCopied {
			total += a.Size
		}
	}

	return total
}
