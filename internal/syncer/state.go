package syncer

import (
	"sync"
	"time"

	"foldersync/internal/config"
	"foldersync/internal/model"
)

type State struct {
	mu   sync.RWMutex
	snap model.Snapshot
}

func NewState(cfg config.Config, startedAt time.Time) *State {
	return &State{
		snap: model.Snapshot{
			Source:    cfg.Source,
			Replica:   cfg.Replica,
			Interval:  cfg.Interval,
			StartedAt: startedAt,
		},
	}
}

func (s *State) RecordTick(result model.TickResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Ticks++
	finishedAt := result.FinishedAt
	s.snap.LastTick = &finishedAt
	s.snap.LastCopied = result.Count(model.ActionCopied)
	s.snap.LastRemoved = result.Count(model.ActionRemoved)
	s.snap.LastBytes = result.BytesCopied()

	if result.Err != nil {
		s.snap.Failed++
		s.snap.LastError = result.Err.Error()
	} else {
		s.snap.LastError = ""
	}
}

func (s *State) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap
}
