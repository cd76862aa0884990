package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"foldersync/internal/logger"
	"foldersync/internal/pipeline"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Watcher calls onChange once the top level of a directory has been quiet
// for the debounce delay after a change.
type Watcher struct {
	fw       *fsnotify.Watcher
	clock    clockwork.Clock
	delay    time.Duration
	matcher  *pipeline.Matcher
	onChange func()

	mu     sync.Mutex
	timer  clockwork.Timer
	doneCh chan struct{}
	wg     sync.WaitGroup
}

func New(clock clockwork.Clock, delay time.Duration, matcher *pipeline.Matcher, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		fw:       fw,
		clock:    clock,
		delay:    delay,
		matcher:  matcher,
		onChange: onChange,
		doneCh:   make(chan struct{}),
	}, nil
}

func (w *Watcher) Watch(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if _, err := os.Stat(absDir); err != nil {
		return fmt.Errorf("source directory not found: %w", err)
	}

	if err := w.fw.Add(absDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", absDir, err)
	}

	w.wg.Add(1)
	go w.run()

	logger.Log.Info("watcher started",
		zap.String("dir", absDir))
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.doneCh:
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if ev.Op == fsnotify.Chmod {
				continue
			}

			if w.matcher.Ignored(filepath.Base(ev.Name)) {
				continue
			}

			logger.Log.Debug("source changed",
				zap.String("op", ev.Op.String()),
				zap.String("path", ev.Name))
			w.schedule()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			logger.Log.Error("watcher error",
				zap.Error(err))
		}
	}
}

// schedule restarts the quiet period.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.doneCh:
		return
	default:
	}

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = w.clock.AfterFunc(w.delay, w.onChange)
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	select {
	case <-w.doneCh:
		w.mu.Unlock()
		return
	default:
	}
	close(w.doneCh)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	_ = w.fw.Close()
	w.wg.Wait()
}
