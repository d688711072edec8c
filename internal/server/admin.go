package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/views"
	"github.com/Zachkp/folio/internal/visitors"
)

const (
	adminSession     = 3600 * 24
	recentVisitLimit = 200
)

// AdminStats is the dashboard and export payload.
type AdminStats struct {
	*visitors.Stats
	ProjectViews        map[string]int64 `json:"project_views"`
	TotalViews          int64            `json:"total_views"`
	Messages            int64            `json:"messages"`
	UndeliveredMessages int64            `json:"undelivered_messages"`
}

func (s *Server) adminRoutes(r *gin.Engine) {
	r.GET("/admin/login", s.adminLoginPage)
	r.POST("/admin/login", s.adminLogin)
	r.GET("/admin/logout", s.adminLogout)

	admin := r.Group("/admin")
	admin.Use(s.adminAuth())
	admin.GET("/dashboard", s.adminDashboard)
	admin.GET("/api/stats", s.adminAPIStats)
	admin.GET("/visitors", s.adminVisitors)
	admin.GET("/export/stats", s.adminExport)
	admin.POST("/privacy/cleanup", s.adminCleanup)
}

func (s *Server) adminLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "admin-login.html", gin.H{"Title": "Admin Login"})
}

func (s *Server) adminLogin(c *gin.Context) {
	visitor := s.Hasher.Hash(c.ClientIP())
	if !s.validCredentials(c.PostForm("username"), c.PostForm("password")) {
		s.Log.Warn("Failed admin login attempt", "visitor", visitor)
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"Title": "Admin Login",
			"Error": "Invalid credentials",
		})
		return
	}

	c.SetCookie(adminCookieName, s.AdminToken, adminSession, "/admin", "", false, true)
	s.Log.Info("Admin login successful", "visitor", visitor)
	c.Redirect(http.StatusFound, "/admin/dashboard")
}

func (s *Server) validCredentials(username, password string) bool {
	want := s.Config.Admin
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(want.Username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(want.Password))
	return want.Username != "" && userOK&passOK == 1
}

func (s *Server) adminLogout(c *gin.Context) {
	c.SetCookie(adminCookieName, "", -1, "/admin", "", false, true)
	s.Log.Info("Admin logout", "visitor", s.Hasher.Hash(c.ClientIP()))
	c.Redirect(http.StatusFound, "/admin/login")
}

func (s *Server) adminStats(ctx context.Context) (*AdminStats, error) {
	vs, err := s.Visitors.Stats(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.Views.Views(ctx, s.Projects.Slugs())
	if err != nil {
		return nil, fmt.Errorf("failed to load project views: %w", err)
	}
	total, undelivered, err := s.Contact.Inbox().Counts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &AdminStats{
		Stats:               vs,
		ProjectViews:        counts,
		Messages:            total,
		UndeliveredMessages: undelivered,
	}
	for _, n := range counts {
		stats.TotalViews += n
	}
	return stats, nil
}

func (s *Server) adminDashboard(c *gin.Context) {
	stats, err := s.adminStats(c.Request.Context())
	if err != nil {
		s.Log.Error("Error loading admin stats", "error", err)
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
			"Error": "Failed to load statistics",
		})
		return
	}
	c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
		"Stats":    stats,
		"Projects": s.listing(c.Request.Context()),
	})
}

func (s *Server) adminAPIStats(c *gin.Context) {
	stats, err := s.adminStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) adminVisitors(c *gin.Context) {
	visits, err := s.Visitors.Recent(c.Request.Context(), recentVisitLimit)
	if err != nil {
		s.Log.Error("Error loading visitors", "error", err)
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
			"Error": "Failed to load visitors",
		})
		return
	}
	c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
		"Visitors": visits,
	})
}

func (s *Server) adminExport(c *gin.Context) {
	stats, err := s.adminStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
	s.Log.Info("Admin stats exported", "visitor", s.Hasher.Hash(c.ClientIP()))
	c.JSON(http.StatusOK, stats)
}

// adminCleanup drops visits past the retention window and expired view
// dedup markers.
func (s *Server) adminCleanup(c *gin.Context) {
	ctx := c.Request.Context()
	removed, err := s.Visitors.Cleanup(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var purged int64
	if e, ok := s.Views.(views.Expirer); ok {
		if purged, err = e.PurgeExpired(ctx); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	s.Log.Info("Privacy cleanup", "visits_removed", removed, "dedup_purged", purged)
	c.JSON(http.StatusOK, gin.H{
		"message":        "Privacy cleanup complete",
		"visits_removed": removed,
		"dedup_purged":   purged,
	})
}
