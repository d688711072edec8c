// Package server is the portfolio's HTTP surface: the welcome splash, the
// project pages, the contact form and the admin dashboard.
package server

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/i18n"
	"github.com/Zachkp/folio/internal/mail"
	"github.com/Zachkp/folio/internal/projects"
	"github.com/Zachkp/folio/internal/views"
	"github.com/Zachkp/folio/internal/visitors"
	"github.com/Zachkp/folio/internal/welcome"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Deps is everything the handlers need. Clock and AdminToken are optional.
type Deps struct {
	Config    *config.Config
	Log       *slog.Logger
	Projects  *content.Store
	Profile   *content.Profile
	Views     views.Counter
	Visitors  *visitors.Tracker
	Hasher    *visitors.Hasher
	Contact   *mail.Service
	I18n      *i18n.Translator
	Greetings []welcome.Translation
	Clock     welcome.Clock
	// AdminToken is the admin session cookie value. A random token is
	// generated when empty, so sessions do not survive a restart.
	AdminToken string
}

type Server struct {
	Deps
	durations welcome.Durations
	engine    *gin.Engine
}

// New validates deps and builds the router.
func New(d Deps) (*Server, error) {
	switch {
	case d.Config == nil:
		return nil, errors.New("server: config is required")
	case d.Projects == nil || d.Profile == nil:
		return nil, errors.New("server: content is required")
	case d.Views == nil || d.Visitors == nil || d.Hasher == nil:
		return nil, errors.New("server: storage is required")
	case d.Contact == nil || d.I18n == nil:
		return nil, errors.New("server: contact service and translator are required")
	case len(d.Greetings) == 0:
		return nil, welcome.ErrNoTranslations
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = welcome.SystemClock()
	}
	if d.AdminToken == "" {
		token, err := visitors.RandomToken()
		if err != nil {
			return nil, err
		}
		d.AdminToken = token
	}

	durations := welcome.Durations{Dwell: d.Config.Welcome.Dwell, ExitHold: d.Config.Welcome.ExitHold}
	if err := durations.Validate(); err != nil {
		return nil, err
	}

	s := &Server{Deps: d, durations: durations}
	engine, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() (*gin.Engine, error) {
	tmpl, err := s.templates()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.localeMiddleware(), s.visitorTracking())
	r.SetHTMLTemplate(tmpl)

	r.StaticFS("/static", http.FS(static))
	r.Static("/images", "./images")

	r.GET("/healthz", s.healthz)
	r.GET("/", s.home)
	r.GET("/work-content", s.workContent)
	r.GET("/education-content", s.educationContent)
	r.GET("/welcome/stream", s.welcomeStream)
	r.GET("/welcome/frame", s.welcomeFrame)
	r.GET("/projects", s.projectList)
	r.GET("/projects/:slug", s.projectPage)
	r.GET("/contact-form", s.contactForm)
	r.POST("/contact", s.submitContact)
	r.GET("/privacy", s.privacy)

	s.adminRoutes(r)

	r.NoRoute(func(c *gin.Context) {
		s.notFound(c)
	})
	return r, nil
}

func (s *Server) templates() (*template.Template, error) {
	funcs := template.FuncMap{
		"t": func(locale, key string) string {
			return s.I18n.T(locale, key, nil)
		},
		"views": func(locale string, card projects.Card) string {
			return s.I18n.Plural(locale, "views_count", card.Views, map[string]any{"Label": card.ViewsLabel})
		},
		"cardData": func(locale string, card projects.Card) map[string]any {
			return map[string]any{"Locale": locale, "Card": card}
		},
		"comma": humanize.Comma,
		"ago":   humanize.Time,
		"year": func() int {
			return time.Now().Year()
		},
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}
	return tmpl, nil
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
