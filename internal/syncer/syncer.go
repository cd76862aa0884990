package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"foldersync/internal/config"
	"foldersync/internal/logger"
	"foldersync/internal/model"
	"foldersync/internal/pipeline"
	"foldersync/internal/util"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc/panics"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type HistoryStore interface {
	Save(ctx context.Context, result model.TickResult) error
}

// Synchronizer mirrors the top-level files of the source directory into
// the replica directory. Ticks are serialized.
type Synchronizer struct {
	mu      sync.Mutex
	cfg     config.Config
	fs      afero.Fs
	log     *logger.ActionLogger
	matcher *pipeline.Matcher
	history HistoryStore
	clock   clockwork.Clock
	state   *State
}

type Option func(*Synchronizer)

func WithClock(c clockwork.Clock) Option {
	return func(s *Synchronizer) {
		s.clock = c
	}
}

func New(cfg config.Config, fs afero.Fs, log *logger.ActionLogger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		cfg:     cfg,
		fs:      fs,
		log:     log,
		matcher: pipeline.NewMatcher(cfg.IgnoreList),
		clock:   clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.state = NewState(cfg, s.clock.Now())
	return s
}

// EnsureDirectories creates every missing path, parents included, and logs
// one line per created directory. Failures are collected and returned
// together.
func (s *Synchronizer) EnsureDirectories(paths ...string) error {
	var errs []error

	for _, path := range paths {
		info, err := s.fs.Stat(path)
		if err == nil {
			if !info.IsDir() {
				errs = append(errs, fmt.Errorf("%s exists and is not a directory", path))
			}
			continue
		}

		if !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to stat %s: %w", path, err))
			continue
		}

		if err := s.fs.MkdirAll(path, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("failed to create %s: %w", path, err))
			continue
		}

		s.log.Logf("Created directory: %s", path)
	}

	return errors.Join(errs...)
}

// Synchronize runs one tick: copy every source file into the replica,
// then remove replica files missing from the source. The first failure
// ends the tick; it is logged and returned, and whatever was done before
// it stays done.
func (s *Synchronizer) Synchronize(ctx context.Context) (model.TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := model.TickResult{
		ID:        uuid.NewString(),
		StartedAt: s.clock.Now(),
	}

	var err error
	var pc panics.Catcher
	pc.Try(func() {
		err = s.sync(&result)
	})
	if r := pc.Recovered(); r != nil {
		logger.Log.Error("tick panicked",
			zap.String("tick", result.ID),
			zap.ByteString("stack", r.Stack))
		err = fmt.Errorf("panic: %v", r.Value)
	}

	result.FinishedAt = s.clock.Now()
	result.Err = err

	if err != nil {
		s.log.Logf("Error synchronizing folders: %v", err)
	} else {
		s.log.Log("Folders synchronized successfully.")
	}

	s.record(ctx, result)
	return result, err
}

// UseHistory makes later ticks persist their results to h.
func (s *Synchronizer) UseHistory(h HistoryStore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = h
}

func (s *Synchronizer) Snapshot() model.Snapshot {
	return s.state.Snapshot()
}

func (s *Synchronizer) sync(result *model.TickResult) error {
	if err := s.copyNewAndChanged(result); err != nil {
		return err
	}

	return s.removeOrphans(result)
}

// copyNewAndChanged overwrites every replica file that has a source
// counterpart, whether or not it changed.
func (s *Synchronizer) copyNewAndChanged(result *model.TickResult) error {
	names, err := util.ListFiles(s.fs, s.cfg.Source)
	if err != nil {
		return err
	}

	for _, name := range s.matcher.Filter(names) {
		src := filepath.Join(s.cfg.Source, name)
		dst := filepath.Join(s.cfg.Replica, name)

		n, err := util.CopyFile(s.fs, src, dst)
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", name, err)
		}

		result.Actions = append(result.Actions, model.Action{
			Type: model.ActionCopied,
			Name: name,
			Size: n,
		})
		s.log.Logf("Copied: %s", name)
	}

	return nil
}

func (s *Synchronizer) removeOrphans(result *model.TickResult) error {
	names, err := util.ListRemovable(s.fs, s.cfg.Replica)
	if err != nil {
		return err
	}

	for _, name := range s.matcher.Filter(names) {
		exists, err := util.IsFile(s.fs, filepath.Join(s.cfg.Source, name))
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", name, err)
		}
		if exists {
			continue
		}

		if err := util.RemoveIfExists(s.fs, filepath.Join(s.cfg.Replica, name)); err != nil {
			return err
		}

		result.Actions = append(result.Actions, model.Action{
			Type: model.ActionRemoved,
			Name: name,
		})
		s.log.Logf("Removed: %s", name)
	}

	return nil
}

func (s *Synchronizer) record(ctx context.Context, result model.TickResult) {
	s.state.RecordTick(result)

	logger.Log.Debug("tick finished",
		zap.String("tick", result.ID),
		zap.Int("copied", result.Count(model.ActionCopied)),
		zap.Int("removed", result.Count(model.ActionRemoved)),
		zap.String("bytes", humanize.Bytes(uint64(result.BytesCopied()))),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)),
		zap.Error(result.Err))

	if s.history == nil {
		return
	}

	if err := s.history.Save(ctx, result); err != nil {
		logger.Log.Warn("failed to save history",
			zap.String("tick", result.ID),
			zap.Error(err))
	}
}
