package dashboard

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dshills/agentdeck/internal/config"
	"github.com/dshills/agentdeck/internal/plugin"
)

type enabledRequest struct {
	Enabled []string `json:"enabled"`
}

type enabledResponse struct {
	Enabled []string `json:"enabled"`
	Saved   bool     `json:"saved"`
}

type settingRequest struct {
	Value string `json:"value"`
}

type outcomeView struct {
	Unit   string `json:"unit"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type reportView struct {
	Root         string        `json:"root"`
	Live         int           `json:"live"`
	Placeholders int           `json:"placeholders"`
	Skipped      int           `json:"skipped"`
	Units        []outcomeView `json:"units"`
	Ignored      []string      `json:"ignored,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func newReportView(r plugin.Report) reportView {
	v := reportView{
		Root:         r.Root,
		Live:         r.Live,
		Placeholders: r.Placeholders,
		Skipped:      r.Skipped,
		Units:        make([]outcomeView, 0, len(r.Units)),
		Ignored:      r.Ignored,
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	for _, o := range r.Units {
		ov := outcomeView{Unit: o.Unit.Name, Kind: o.Unit.Kind.String(), Name: o.Name, Status: o.Status}
		if o.Err != nil {
			ov.Error = o.Err.Error()
		}
		v.Units = append(v.Units, ov)
	}
	return v
}

// GET /api/components
func (s *Server) listComponents(c echo.Context) error {
	return c.JSON(http.StatusOK, s.views(s.app.Registry().Available()))
}

// POST /api/components/:name/enable changes the in-memory set only; call
// /api/save to persist it.
func (s *Server) enableComponent(c echo.Context) error {
	name := nameParam(c, "name")
	if err := s.app.Registry().Enable(name); err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	comp, _ := s.app.Registry().Get(name)
	return c.JSON(http.StatusOK, s.view(comp))
}

// POST /api/components/:name/disable
func (s *Server) disableComponent(c echo.Context) error {
	name := nameParam(c, "name")
	s.app.Registry().Disable(name)
	return c.JSON(http.StatusOK, enabledResponse{Enabled: s.app.Registry().Enabled()})
}

// PUT /api/enabled replaces and saves the enabled set.
func (s *Server) replaceEnabled(c echo.Context) error {
	var req enabledRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Enabled == nil {
		req.Enabled = []string{}
	}
	if err := s.app.SetEnabled(req.Enabled); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, enabledResponse{Enabled: s.app.Registry().Enabled(), Saved: true})
}

// POST /api/save
func (s *Server) saveEnabled(c echo.Context) error {
	if err := s.app.Registry().SaveConfig(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, enabledResponse{Enabled: s.app.Registry().Enabled(), Saved: true})
}

// POST /api/rescan
func (s *Server) rescan(c echo.Context) error {
	report := s.app.Rescan(c.Request().Context())
	return c.JSON(http.StatusOK, newReportView(report))
}

// GET /api/settings
func (s *Server) listSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, s.settingViews())
}

// PUT /api/settings/:key sets a value and rewrites the config file.
func (s *Server) updateSetting(c echo.Context) error {
	key := nameParam(c, "key")
	var req settingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cfg := s.app.Config()
	if err := cfg.Set(key, req.Value); err != nil {
		switch {
		case errors.Is(err, config.ErrUnknownSetting):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, config.ErrInvalidOption):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	for _, v := range s.settingViews() {
		if v.Key == key {
			return c.JSON(http.StatusOK, v)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /api/artifacts
func (s *Server) listArtifacts(c echo.Context) error {
	entries, err := s.app.Artifacts().List()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// GET /api/stats
func (s *Server) stats(c echo.Context) error {
	page := s.basePage("")
	return c.JSON(http.StatusOK, map[string]any{
		"components": page.Stats,
		"metrics":    s.app.Metrics().Snapshot(),
	})
}
