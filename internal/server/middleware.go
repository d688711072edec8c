package server

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	localeKey       = "locale"
	adminCookieName = "admin_token"
)

// untrackedPrefixes are never recorded as visits.
var untrackedPrefixes = []string{
	"/static/",
	"/images/",
	"/admin",
	"/favicon",
	"/privacy",
	"/healthz",
	"/welcome/",
}

func (s *Server) requestLogger() gin.HandlerFunc {
	log := s.Log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"visitor", s.Hasher.Hash(c.ClientIP()),
			"body_size", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP request completed with server error", attrs...)
		case status >= http.StatusBadRequest:
			log.Warn("HTTP request completed with client error", attrs...)
		default:
			log.Debug("HTTP request completed", attrs...)
		}
	}
}

// localeMiddleware picks the interface language from ?lang= when it names a
// loaded locale, otherwise from Accept-Language.
func (s *Server) localeMiddleware() gin.HandlerFunc {
	supported := s.I18n.Languages()
	return func(c *gin.Context) {
		loc := c.Query("lang")
		if !slices.Contains(supported, loc) {
			loc = s.I18n.Match(c.GetHeader("Accept-Language"))
		}
		c.Set(localeKey, loc)
		c.Next()
	}
}

func locale(c *gin.Context) string {
	return c.GetString(localeKey)
}

// visitorTracking records one row per page visit with a hashed IP. Requests
// carrying DNT: 1 are not recorded.
func (s *Server) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet || c.GetHeader("DNT") == "1" || untracked(path) {
			c.Next()
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		err := s.Visitors.Record(c.Request.Context(), s.Hasher.Hash(c.ClientIP()), c.Request.UserAgent(), path)
		if err != nil {
			s.Log.Warn("Error recording visitor", "path", path, "error", err)
		}
	}
}

func untracked(path string) bool {
	for _, prefix := range untrackedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookieName)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}
