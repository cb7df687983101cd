// Package dashboard serves the host page: the component center, one page
// per enabled component, a settings editor and the artifact browser, plus
// the JSON API behind them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dshills/agentdeck/internal/app"
	"github.com/dshills/agentdeck/internal/logging"
)

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 5 * time.Second

// Server is the dashboard HTTP server.
type Server struct {
	app    *app.App
	echo   *echo.Echo
	logger *logging.Logger
}

// New creates a server over a started application.
func New(a *app.App) (*Server, error) {
	renderer, err := newTemplateRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		app:    a,
		echo:   echo.New(),
		logger: a.Logger().WithComponent("dashboard"),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Warn("%d %s %s (%s): %v", v.Status, v.Method, v.URI, v.Latency, v.Error)
				return nil
			}
			s.logger.Debug("%d %s %s (%s)", v.Status, v.Method, v.URI, v.Latency)
			return nil
		},
	}))

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.GET("/", s.componentCenter)
	e.POST("/", s.saveSelection)
	e.GET("/components/:name", s.componentPage)
	e.GET("/settings", s.settingsPage)
	e.GET("/artifacts", s.artifactsPage)
	e.GET("/artifacts/:file", s.artifactFile)

	api := e.Group("/api")
	api.GET("/components", s.listComponents)
	api.POST("/components/:name/enable", s.enableComponent)
	api.POST("/components/:name/disable", s.disableComponent)
	api.PUT("/enabled", s.replaceEnabled)
	api.POST("/save", s.saveEnabled)
	api.POST("/rescan", s.rescan)
	api.GET("/settings", s.listSettings)
	api.PUT("/settings/:key", s.updateSetting)
	api.GET("/artifacts", s.listArtifacts)
	api.GET("/stats", s.stats)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errc <- s.echo.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// handleError renders JSON for API routes and the error page otherwise.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		_ = c.JSON(code, map[string]string{"error": msg})
		return
	}
	page := s.basePage(http.StatusText(code))
	page.Error = msg
	_ = c.Render(code, "error", page)
}
