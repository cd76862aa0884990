package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foldersync/internal/config"
	"foldersync/internal/daemon"
	"foldersync/internal/db"
	"foldersync/internal/logger"
	"foldersync/internal/pipeline"
	"foldersync/internal/repository"
	"foldersync/internal/scheduler"
	"foldersync/internal/syncer"
	"foldersync/internal/watcher"

	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-isatty"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func runSync(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	cfg, err := settings.WithArgs(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSettings(out, cfg)

	clock := clockwork.NewRealClock()
	actions := logger.NewActionLogger(afero.NewOsFs(), cfg.LogFile(), out)
	s := syncer.New(cfg, afero.NewOsFs(), actions, syncer.WithClock(clock))

	if err := s.EnsureDirectories(cfg.Directories()...); err != nil {
		actions.Logf("Error creating directories: %v", err)
	}

	gdb, history := openHistory(cfg)
	if gdb != nil {
		defer func() { _ = db.Close(gdb) }()
		s.UseHistory(history)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if once {
		if _, err := s.Synchronize(ctx); err != nil {
			return fmt.Errorf("synchronization failed: %w", err)
		}
		return nil
	}

	srv := startServer(cfg, s, history)
	sched := scheduler.New(clock, cfg.Interval, func(ctx context.Context) error {
		_, err := s.Synchronize(ctx)
		return err
	})

	if cfg.Watch {
		if w := startWatcher(cfg, clock, sched.Trigger); w != nil {
			defer w.Stop()
		}
	}

	fmt.Fprintln(out, "Press any key to exit...")

	var wg conc.WaitGroup
	wg.Go(func() {
		sched.Run(ctx)
	})

	waitForExit(srv)

	cancel()
	wg.Wait()

	if srv != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := srv.Stop(stopCtx); err != nil {
			logger.Log.Warn("failed to stop control server", zap.Error(err))
		}
	}

	return nil
}

func printSettings(out io.Writer, cfg config.Config) {
	fmt.Fprintf(out, "Source Directory: %s\n", cfg.Source)
	fmt.Fprintf(out, "Replica Directory: %s\n", cfg.Replica)
	fmt.Fprintf(out, "Log Directory: %s\n", cfg.LogDir)
	fmt.Fprintf(out, "Sync Interval: %d seconds\n", int(cfg.Interval/time.Second))
}

// openHistory opens the tick history database. Synchronization goes on
// without history when it cannot be opened.
func openHistory(cfg config.Config) (*gorm.DB, *repository.HistoryRepository) {
	gdb, err := db.Open(cfg.HistoryDB())
	if err != nil {
		logger.Log.Warn("tick history disabled",
			zap.String("path", cfg.HistoryDB()),
			zap.Error(err))
		return nil, nil
	}

	history := repository.NewHistoryRepository(gdb, cfg.Source, cfg.Replica)

	if cfg.HistoryRetention > 0 {
		n, err := history.Prune(time.Now().Add(-cfg.HistoryRetention))
		if err != nil {
			logger.Log.Warn("failed to prune history", zap.Error(err))
		} else if n > 0 {
			logger.Log.Info("pruned history", zap.Int64("ticks", n))
		}
	}

	return gdb, history
}

func startServer(cfg config.Config, s *syncer.Synchronizer, history *repository.HistoryRepository) *daemon.Server {
	if cfg.DaemonPort == 0 {
		return nil
	}

	var reader daemon.HistoryReader
	if history != nil {
		reader = history
	}

	srv := daemon.NewServer(s, reader, cfg.DaemonPort)
	if err := srv.Start(); err != nil {
		logger.Log.Warn("control server disabled", zap.Error(err))
		return nil
	}

	return srv
}

func startWatcher(cfg config.Config, clock clockwork.Clock, onChange func()) *watcher.Watcher {
	w, err := watcher.New(clock, cfg.WatchDebounce, pipeline.NewMatcher(cfg.IgnoreList), onChange)
	if err != nil {
		logger.Log.Warn("watch mode disabled", zap.Error(err))
		return nil
	}

	if err := w.Watch(cfg.Source); err != nil {
		logger.Log.Warn("watch mode disabled", zap.Error(err))
		w.Stop()
		return nil
	}

	return w
}

// waitForExit blocks until a signal, a stop request or a key press.
func waitForExit(srv *daemon.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var stopCh <-chan struct{}
	if srv != nil {
		stopCh = srv.StopCh()
	}

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down", zap.String("signal", sig.String()))
	case <-stopCh:
		logger.Log.Info("stop requested via API")
	case <-keyPressed(os.Stdin):
		logger.Log.Info("key pressed")
	}
}

// keyPressed fires on the first byte read from f. It never fires when f is
// not a terminal.
func keyPressed(f *os.File) <-chan struct{} {
	ch := make(chan struct{})
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return ch
	}

	go func() {
		buf := make([]byte, 1)
		if _, err := f.Read(buf); err == nil {
			close(ch)
		}
	}()

	return ch
}
