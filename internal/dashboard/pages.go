package dashboard

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/dshills/agentdeck/internal/app"
	"github.com/dshills/agentdeck/internal/artifact"
	"github.com/dshills/agentdeck/internal/plugin"
)

// componentView is how a component appears in pages and the API.
type componentView struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Missing      []string `json:"missing"`
	Status       string   `json:"status"`
	Available    bool     `json:"available"`
	Enabled      bool     `json:"enabled"`
	Unit         string   `json:"unit"`
}

type statsView struct {
	Available int `json:"available"`
	Enabled   int `json:"enabled"`
}

type settingView struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
	Value       string   `json:"value"`
	Source      string   `json:"source"`
}

type pageData struct {
	Title      string
	Enabled    []componentView
	Stats      statsView
	Components []componentView
	Current    componentView
	Output     string
	Error      string
	Saved      bool
	Settings   []settingView
	Artifacts  []artifact.Entry
}

func (s *Server) view(c plugin.Component) componentView {
	reg := s.app.Registry()
	return componentView{
		Name:         c.Name(),
		Description:  c.Description(),
		Requirements: c.Requirements(),
		Missing:      reg.Checker().Missing(c.Requirements()),
		Status:       c.Status().String(),
		Available:    c.Available(),
		Enabled:      reg.IsEnabled(c.Name()),
		Unit:         c.Unit().Entry,
	}
}

func (s *Server) views(comps []plugin.Component) []componentView {
	out := make([]componentView, 0, len(comps))
	for _, c := range comps {
		out = append(out, s.view(c))
	}
	return out
}

// basePage fills the sidebar shared by every page.
func (s *Server) basePage(title string) pageData {
	reg := s.app.Registry()
	enabled := s.views(reg.EnabledComponents())
	return pageData{
		Title:   title,
		Enabled: enabled,
		Stats: statsView{
			Available: len(reg.Names()),
			Enabled:   len(enabled),
		},
	}
}

func (s *Server) settingViews() []settingView {
	entries := s.app.Config().Entries()
	out := make([]settingView, 0, len(entries))
	for _, e := range entries {
		out = append(out, settingView{
			Key:         e.Key,
			Description: e.Description,
			Type:        string(e.Type),
			Options:     e.Options,
			Value:       e.Value,
			Source:      e.Source,
		})
	}
	return out
}

// nameParam returns the unescaped path parameter.
func nameParam(c echo.Context, key string) string {
	raw := c.Param(key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// GET /
func (s *Server) componentCenter(c echo.Context) error {
	page := s.basePage("Component Center")
	page.Components = s.views(s.app.Registry().Available())
	page.Saved = c.QueryParam("saved") == "1"
	return c.Render(http.StatusOK, "index", page)
}

// POST / saves the checked components as the enabled set.
func (s *Server) saveSelection(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := s.app.SetEnabled(form["enabled"]); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/?saved=1")
}

// GET /components/:name
func (s *Server) componentPage(c echo.Context) error {
	name := nameParam(c, "name")
	comp, ok := s.app.Registry().Get(name)
	if !ok || !s.app.Registry().IsEnabled(name) {
		return echo.NewHTTPError(http.StatusNotFound, "component "+name+" is not enabled")
	}

	page := s.basePage(name)
	page.Current = s.view(comp)
	out, err := s.app.Render(c.Request().Context(), name)
	if err != nil {
		page.Error = err.Error()
		return c.Render(http.StatusInternalServerError, "component", page)
	}
	page.Output = out
	return c.Render(http.StatusOK, "component", page)
}

// GET /settings
func (s *Server) settingsPage(c echo.Context) error {
	page := s.basePage("Settings")
	page.Settings = s.settingViews()
	return c.Render(http.StatusOK, "settings", page)
}

// GET /artifacts
func (s *Server) artifactsPage(c echo.Context) error {
	entries, err := s.app.Artifacts().List()
	if err != nil {
		return err
	}
	page := s.basePage("Artifacts")
	page.Artifacts = entries
	return c.Render(http.StatusOK, "artifacts", page)
}

// GET /artifacts/:file
func (s *Server) artifactFile(c echo.Context) error {
	path, err := s.app.Artifacts().Open(nameParam(c, "file"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "artifact not found")
	}
	return c.File(path)
}

// statusFor maps application errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, plugin.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrNotEnabled):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
