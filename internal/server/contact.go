package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/mail"
)

// contactForm returns just the form markup for HTMX.
func (s *Server) contactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{
		"Locale": locale(c),
		"Title":  "Contact Me",
	})
}

// submitContact answers with a success or error fragment. Both are 200 so
// HTMX swaps them in.
func (s *Server) submitContact(c *gin.Context) {
	loc := locale(c)
	msg := mail.Message{
		Name:  c.PostForm("fullName"),
		Email: c.PostForm("email"),
		Body:  c.PostForm("message"),
	}

	err := s.Contact.Submit(c.Request.Context(), msg)
	switch {
	case err == nil:
		s.Log.Info("Contact message sent", "visitor", s.Hasher.Hash(c.ClientIP()))
		c.HTML(http.StatusOK, "contact-success.html", gin.H{
			"Success": s.I18n.T(loc, "contact_success", nil),
		})
	case errors.Is(err, mail.ErrInvalidMessage), errors.Is(err, mail.ErrInvalidEmail):
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"Error": s.I18n.T(loc, "contact_invalid", nil),
		})
	default:
		s.Log.Error("Error sending contact message", "error", err)
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"Error": s.I18n.T(loc, "contact_error", nil),
		})
	}
}
