package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"foldersync/internal/autostart"
	"foldersync/internal/config"
	"foldersync/internal/daemon"
	"foldersync/internal/db"
	"foldersync/internal/model"
	"foldersync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(args ...string) (string, error) {
	settings, cfgFile, debug, once = nil, "", false, false
	historyN, historyTick, historyFailed = 20, "", false

	out := &syncBuffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, port int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("daemon_port: %d\n", port)), 0o644))
	return path
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestWrongArgumentCount(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	replica := filepath.Join(dir, "replica")

	_, err := execute(src, replica, "5")

	var argErr *config.ArgumentError
	ok := errors.As(err, &argErr)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, config.UsageMessage, argErr.Msg)

	assert.NoDirExists(t, src)
	assert.NoDirExists(t, replica)
}

func TestInvalidInterval(t *testing.T) {
	for _, interval := range []string{"0", "-5", "-1", "abc", "1.5", "99999999999"} {
		t.Run(interval, func(t *testing.T) {
			dir := t.TempDir()
			logDir := filepath.Join(dir, "logs")

			_, err := execute(filepath.Join(dir, "src"), filepath.Join(dir, "replica"), logDir, interval)

			var argErr *config.ArgumentError
			ok := errors.As(err, &argErr)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, config.InvalidIntervalMessage, argErr.Msg)
			assert.NoDirExists(t, logDir)
		})
	}
}

func TestFlagAfterArguments(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")

	_, err := execute(filepath.Join(dir, "src"), filepath.Join(dir, "replica"), logDir, "5", "--once")

	var argErr *config.ArgumentError
	ok := errors.As(err, &argErr)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, config.UsageMessage, argErr.Msg)
	assert.NoDirExists(t, logDir)
}

func TestUnknownFlag(t *testing.T) {
	_, err := execute("--bogus", "a", "b", "c", "1")

	ok := errors.As(err, new(*config.ArgumentError))
	assert.True(t, ok, "got %v", err)
}

func TestRunOnce(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	replica := filepath.Join(dir, "replica")
	logDir := filepath.Join(dir, "var", "logs")

	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.MkdirAll(replica, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(replica, "orphan.txt"), []byte("x"), 0o644))

	out, err := execute("--config", writeConfig(t, 0), "--once", src, replica, logDir, "5")
	require.NoError(t, err)

	assert.Contains(t, out, "Source Directory: "+src+"\n")
	assert.Contains(t, out, "Replica Directory: "+replica+"\n")
	assert.Contains(t, out, "Log Directory: "+logDir+"\n")
	assert.Contains(t, out, "Sync Interval: 5 seconds\n")
	assert.Contains(t, out, " - Created directory: "+logDir+"\n")
	assert.Contains(t, out, " - Copied: a.txt\n")
	assert.Contains(t, out, " - Removed: orphan.txt\n")
	assert.Contains(t, out, " - Folders synchronized successfully.\n")
	assert.NotContains(t, out, "Press any key to exit...")

	data, err := os.ReadFile(filepath.Join(replica, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
	assert.NoFileExists(t, filepath.Join(replica, "orphan.txt"))

	logData, err := os.ReadFile(filepath.Join(logDir, config.LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(logData), " - Created directory: "+logDir+"\n")
	assert.Contains(t, string(logData), " - Copied: a.txt\n")
	assert.Contains(t, string(logData), " - Folders synchronized successfully.\n")

	assert.FileExists(t, filepath.Join(logDir, config.HistoryDBName))
}

func TestRunOnceFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("not a directory"), 0o644))

	out, err := execute("--config", writeConfig(t, 0), "--once", src, filepath.Join(dir, "replica"), filepath.Join(dir, "logs"), "1")
	require.Error(t, err)

	ok := errors.As(err, new(*config.ArgumentError))
	assert.False(t, ok)
	assert.Contains(t, out, " - Error creating directories: ")
	assert.Contains(t, out, " - Error synchronizing folders: ")
	assert.DirExists(t, filepath.Join(dir, "replica"))
}

func TestRunUntilStopped(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	replica := filepath.Join(dir, "replica")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))

	port := freePort(t)
	cfgPath := writeConfig(t, port)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := execute("--config", cfgPath, src, replica, filepath.Join(dir, "logs"), "1")
		done <- result{out: out, err: err}
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/status")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(replica, "a.txt"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(base+"/stop", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Contains(t, r.out, "Press any key to exit...\n")
		assert.Contains(t, r.out, " - Copied: a.txt\n")
	case <-time.After(10 * time.Second):
		t.Fatal("foldersync did not stop")
	}
}

type fixedStatus struct {
	snap model.Snapshot
}

func (f fixedStatus) Snapshot() model.Snapshot {
	return f.snap
}

func startControlServer(t *testing.T, snap model.Snapshot) (*daemon.Server, int) {
	t.Helper()

	gdb, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	repo := repository.NewHistoryRepository(gdb, "/src", "/replica")
	now := time.Now()
	require.NoError(t, repo.Save(context.Background(), model.TickResult{
		ID: "tick-1", StartedAt: now, FinishedAt: now,
		Actions: []model.Action{{Type: model.ActionCopied, Name: "a.txt", Size: 2048}},
	}))

	port := freePort(t)
	srv := daemon.NewServer(fixedStatus{snap: snap}, repo, port)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	return srv, port
}

func TestStatusCommand(t *testing.T) {
	last := time.Now()
	_, port := startControlServer(t, model.Snapshot{
		Source:     "/src",
		Replica:    "/replica",
		Interval:   10 * time.Second,
		StartedAt:  time.Now().Add(-time.Hour),
		Ticks:      3,
		Failed:     1,
		LastTick:   &last,
		LastCopied: 2,
	})

	out, err := execute("--config", writeConfig(t, port), "status")
	require.NoError(t, err)

	assert.Contains(t, out, "source:    /src\n")
	assert.Contains(t, out, "replica:   /replica\n")
	assert.Contains(t, out, "ticks:     3 (1 failed)\n")
	assert.Contains(t, out, "2 copied")
	assert.Contains(t, out, "history:   1 ticks, 1 ok, 0 failed\n")
}

func TestHistoryCommand(t *testing.T) {
	_, port := startControlServer(t, model.Snapshot{})
	cfgPath := writeConfig(t, port)

	out, err := execute("--config", cfgPath, "history", "--n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "tick-1")
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "2.0 kB")

	out, err = execute("--config", cfgPath, "history", "--tick", "tick-1")
	require.NoError(t, err)
	assert.Contains(t, out, "COPIED")
	assert.Contains(t, out, "a.txt")

	out, err = execute("--config", cfgPath, "history", "--failed")
	require.NoError(t, err)
	assert.Equal(t, "no failed ticks\n", out)
}

func TestStopCommand(t *testing.T) {
	srv, port := startControlServer(t, model.Snapshot{})

	out, err := execute("--config", writeConfig(t, port), "stop")
	require.NoError(t, err)
	assert.Equal(t, "stopped\n", out)

	select {
	case <-srv.StopCh():
	case <-time.After(time.Second):
		t.Fatal("stop was not delivered")
	}
}

func TestStopCommandServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"shutdown refused"}`))
	}))
	defer ts.Close()

	port := ts.Listener.Addr().(*net.TCPAddr).Port

	out, err := execute("--config", writeConfig(t, port), "stop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown refused")
	assert.NotContains(t, out, "stopped")
}

func TestClientCommandsWithoutControlServer(t *testing.T) {
	cfgPath := writeConfig(t, 0)

	for _, name := range []string{"status", "history", "stop"} {
		_, err := execute("--config", cfgPath, name)
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "control server is disabled", name)
	}
}

type fakeAutoStarter struct {
	execPath  string
	args      []string
	installed bool
}

func (f *fakeAutoStarter) Install(execPath string, args []string) error {
	f.execPath, f.args, f.installed = execPath, args, true
	return nil
}

func (f *fakeAutoStarter) Uninstall() error {
	f.installed = false
	return nil
}

func (f *fakeAutoStarter) IsInstalled() (bool, error) {
	return f.installed, nil
}

func useFakeAutoStarter(t *testing.T) *fakeAutoStarter {
	t.Helper()

	fake := &fakeAutoStarter{}
	prev := newAutoStarter
	newAutoStarter = func() autostart.AutoStarter { return fake }
	t.Cleanup(func() { newAutoStarter = prev })
	return fake
}

func TestInstallCommand(t *testing.T) {
	fake := useFakeAutoStarter(t)
	cfgPath := writeConfig(t, 0)

	out, err := execute("--config", cfgPath, "install", "src", "replica", "logs", "30")
	require.NoError(t, err)
	assert.Equal(t, "foldersync registered for autostart\n", out)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--config", cfgPath,
		filepath.Join(wd, "src"),
		filepath.Join(wd, "replica"),
		filepath.Join(wd, "logs"),
		"30",
	}, fake.args)
	assert.NotEmpty(t, fake.execPath)
	assert.NoDirExists(t, filepath.Join(wd, "src"))
}

func TestInstallCommandInvalidInterval(t *testing.T) {
	fake := useFakeAutoStarter(t)

	_, err := execute("--config", writeConfig(t, 0), "install", "src", "replica", "logs", "0")

	ok := errors.As(err, new(*config.ArgumentError))
	assert.True(t, ok, "got %v", err)
	assert.False(t, fake.installed)
}

func TestUninstallCommand(t *testing.T) {
	fake := useFakeAutoStarter(t)
	cfgPath := writeConfig(t, 0)

	out, err := execute("--config", cfgPath, "uninstall")
	require.NoError(t, err)
	assert.Equal(t, "foldersync is not registered for autostart\n", out)

	fake.installed = true
	out, err = execute("--config", cfgPath, "uninstall")
	require.NoError(t, err)
	assert.Equal(t, "foldersync autostart removed\n", out)
	assert.False(t, fake.installed)
}
