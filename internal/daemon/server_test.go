package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"foldersync/internal/db"
	"foldersync/internal/model"
	"foldersync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus struct {
	snap model.Snapshot
}

func (f fixedStatus) Snapshot() model.Snapshot {
	return f.snap
}

func setupHistory(t *testing.T) *repository.HistoryRepository {
	t.Helper()

	gdb, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	repo := repository.NewHistoryRepository(gdb, "/src", "/replica")
	now := time.Now()

	require.NoError(t, repo.Save(context.Background(), model.TickResult{
		ID: "t1", StartedAt: now, FinishedAt: now,
		Actions: []model.Action{{Type: model.ActionCopied, Name: "a.txt", Size: 3}},
	}))
	require.NoError(t, repo.Save(context.Background(), model.TickResult{
		ID: "t2", StartedAt: now.Add(time.Minute), FinishedAt: now.Add(time.Minute),
		Err: errors.New("boom"),
	}))

	return repo
}

func do(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleStatus(t *testing.T) {
	snap := model.Snapshot{Source: "/src", Replica: "/replica", Ticks: 4, Failed: 1}
	s := NewServer(fixedStatus{snap: snap}, setupHistory(t), 0)

	rec := do(s, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Status.Ticks)
	assert.Equal(t, "/src", resp.Status.Source)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, repository.Stats{Total: 2, Success: 1, Failed: 1}, *resp.Stats)
}

func TestHandleStatusWithoutHistory(t *testing.T) {
	s := NewServer(fixedStatus{}, nil, 0)

	rec := do(s, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Stats)
}

func TestHandleHistory(t *testing.T) {
	s := NewServer(fixedStatus{}, setupHistory(t), 0)

	rec := do(s, http.MethodGet, "/history?n=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var ticks []model.Tick
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticks))
	require.Len(t, ticks, 1)
	assert.Equal(t, "t2", ticks[0].TickID)
	assert.Equal(t, model.StatusFailed, ticks[0].Status)
	assert.Equal(t, "boom", ticks[0].ErrMsg)
}

func TestHandleHistoryFailed(t *testing.T) {
	s := NewServer(fixedStatus{}, setupHistory(t), 0)

	rec := do(s, http.MethodGet, "/history?status=failed")
	require.Equal(t, http.StatusOK, rec.Code)

	var ticks []model.Tick
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticks))
	require.Len(t, ticks, 1)
	assert.Equal(t, "t2", ticks[0].TickID)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/history?status=bogus").Code)
}

func TestHandleHistoryInvalidN(t *testing.T) {
	s := NewServer(fixedStatus{}, setupHistory(t), 0)

	for _, n := range []string{"abc", "0", "-3"} {
		rec := do(s, http.MethodGet, "/history?n="+n)
		assert.Equal(t, http.StatusBadRequest, rec.Code, n)
	}
}

func TestHandleHistoryDisabled(t *testing.T) {
	s := NewServer(fixedStatus{}, nil, 0)

	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodGet, "/history").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodGet, "/history/t1").Code)
}

func TestHandleTickActions(t *testing.T) {
	s := NewServer(fixedStatus{}, setupHistory(t), 0)

	rec := do(s, http.MethodGet, "/history/t1")
	require.Equal(t, http.StatusOK, rec.Code)

	var actions []model.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &actions))
	require.Len(t, actions, 1)
	assert.Equal(t, "a.txt", actions[0].Name)
	assert.Equal(t, model.ActionCopied, actions[0].Action)
}

func TestHandleStop(t *testing.T) {
	s := NewServer(fixedStatus{}, nil, 0)

	rec := do(s, http.MethodPost, "/stop")
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-s.StopCh():
	default:
		t.Fatal("stop was not signalled")
	}

	// a second request must not block
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/stop").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPost, "/stop").Code)
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestStartAndStop(t *testing.T) {
	port := freePort(t)
	s := NewServer(fixedStatus{snap: model.Snapshot{Ticks: 7}}, nil, port)
	require.NoError(t, s.Start())

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/status", port))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestStartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	s := NewServer(fixedStatus{}, nil, ln.Addr().(*net.TCPAddr).Port)
	assert.Error(t, s.Start())
}
