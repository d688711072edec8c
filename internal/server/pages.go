package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/projects"
)

func (s *Server) home(c *gin.Context) {
	listing := s.listing(c.Request.Context())
	highlights := append(append([]projects.Card{}, listing.Pinned...), listing.Top...)

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Locale":     locale(c),
		"Profile":    s.Profile,
		"Highlights": highlights,
		"Greetings":  len(s.Greetings),
	})
}

func (s *Server) workContent(c *gin.Context) {
	c.HTML(http.StatusOK, "entries.html", gin.H{
		"Locale":  locale(c),
		"Entries": s.Profile.Experience,
	})
}

func (s *Server) educationContent(c *gin.Context) {
	c.HTML(http.StatusOK, "entries.html", gin.H{
		"Locale":  locale(c),
		"Entries": s.Profile.Education,
	})
}

func (s *Server) projectList(c *gin.Context) {
	loc := locale(c)
	c.HTML(http.StatusOK, "projects.html", gin.H{
		"Locale":  loc,
		"Title":   s.I18n.T(loc, "projects_title", nil),
		"Listing": s.listing(c.Request.Context()),
	})
}

// listing never fails: a counter outage shows every project with zero views.
func (s *Server) listing(ctx context.Context) projects.Listing {
	counts, err := s.Views.Views(ctx, s.Projects.Slugs())
	if err != nil {
		s.Log.Warn("Error loading view counts", "error", err)
		counts = nil
	}
	return projects.Build(s.Projects.All(), counts, s.Config.Content.Pinned)
}

func (s *Server) projectPage(c *gin.Context) {
	slug := c.Param("slug")
	p, err := s.Projects.Get(slug)
	if errors.Is(err, content.ErrNotFound) || (err == nil && !p.Published) {
		s.notFound(c)
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	count, _, err := s.Views.Record(c.Request.Context(), slug, s.Hasher.Hash(c.ClientIP()))
	if err != nil {
		s.Log.Warn("Error recording project view", "slug", slug, "error", err)
	}

	c.HTML(http.StatusOK, "project.html", gin.H{
		"Locale": locale(c),
		"Title":  p.Title,
		"Card":   projects.NewCard(p, count),
	})
}

func (s *Server) privacy(c *gin.Context) {
	c.HTML(http.StatusOK, "privacy.html", gin.H{
		"Locale": locale(c),
		"Title":  "Privacy Policy",
	})
}

func (s *Server) notFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "not-found.html", gin.H{
		"Locale": locale(c),
	})
}
