package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/welcome"
)

// frameEvent is a welcome.Frame plus its localized position label.
type frameEvent struct {
	welcome.Frame
	Label string `json:"label"`
}

func (s *Server) frameEvent(locale string, f welcome.Frame) frameEvent {
	ev := frameEvent{Frame: f}
	if f.Visible {
		ev.Label = s.I18n.T(locale, "welcome_position", map[string]any{
			"Position": f.Position(),
			"Total":    f.Total,
		})
	}
	return ev
}

// welcomeStream plays one splash sequence per connection as Server-Sent
// Events: a "frame" event for every transition and a final "complete"
// event. A disconnect disposes the sequencer.
func (s *Server) welcomeStream(c *gin.Context) {
	loc := locale(c)
	log := s.Log.With("component", "welcome")

	// start frame, one per advance, exiting and complete
	frames := make(chan welcome.Frame, len(s.Greetings)+2)
	seq, err := welcome.New(s.Greetings, func() { log.Debug("welcome sequence complete") },
		welcome.WithDurations(s.durations),
		welcome.WithClock(s.Clock),
		welcome.WithObserver(func(f welcome.Frame) { frames <- f }),
	)
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer seq.Dispose()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	seq.Start()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("welcome stream closed by client")
			return
		case f := <-frames:
			c.SSEvent("frame", s.frameEvent(loc, f))
			if f.Phase == welcome.PhaseComplete {
				c.SSEvent("complete", gin.H{"total": f.Total})
				c.Writer.Flush()
				return
			}
			c.Writer.Flush()
		}
	}
}

// welcomeFrame returns the first frame of a fresh sequence without starting
// it, for clients that cannot stream.
func (s *Server) welcomeFrame(c *gin.Context) {
	seq, err := welcome.New(s.Greetings, func() {}, welcome.WithDurations(s.durations))
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	d := seq.Durations()
	c.JSON(http.StatusOK, gin.H{
		"frame":      s.frameEvent(locale(c), seq.Frame()),
		"dwellMs":    d.Dwell.Milliseconds(),
		"exitHoldMs": d.ExitHold.Milliseconds(),
		"greetings":  s.Greetings,
	})
}
