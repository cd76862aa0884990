package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"foldersync/internal/logger"
	"foldersync/internal/model"
	"foldersync/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type StatusProvider interface {
	Snapshot() model.Snapshot
}

type HistoryReader interface {
	GetRecent(limit int) ([]model.Tick, error)
	GetFailed(limit int) ([]model.Tick, error)
	GetStats() (repository.Stats, error)
	GetActions(tickID string) ([]model.History, error)
}

type StatusResponse struct {
	Status model.Snapshot    `json:"status"`
	Stats  *repository.Stats `json:"stats,omitempty"`
}

// Server is the local control endpoint of a running synchronizer.
type Server struct {
	echo    *echo.Echo
	status  StatusProvider
	history HistoryReader
	port    int
	stopCh  chan struct{}
}

// NewServer builds the control server. history may be nil when tick
// history is disabled.
func NewServer(status StatusProvider, history HistoryReader, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		status:  status,
		history: history,
		port:    port,
		stopCh:  make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)

	g := s.echo.Group("/history")
	g.GET("", s.handleHistory)
	g.GET("/:tick", s.handleTickActions)
}

// Start binds the port and serves in the background.
func (s *Server) Start() error {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.echo.Listener = ln

	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("control server error", zap.Error(err))
		}
	}()

	logger.Log.Info("control server started",
		zap.String("addr", addr))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := StatusResponse{Status: s.status.Snapshot()}

	if s.history != nil {
		stats, err := s.history.GetStats()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		resp.Stats = &stats
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.history == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "history disabled"})
	}

	n := 20
	if nStr := c.QueryParam("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid n"})
		}
		n = parsed
	}

	var ticks []model.Tick
	var err error
	switch c.QueryParam("status") {
	case "":
		ticks, err = s.history.GetRecent(n)
	case "failed":
		ticks, err = s.history.GetFailed(n)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, ticks)
}

func (s *Server) handleTickActions(c echo.Context) error {
	if s.history == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "history disabled"})
	}

	actions, err := s.history.GetActions(c.Param("tick"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, actions)
}
