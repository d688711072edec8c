// Package welcome drives the multilingual welcome splash: a fixed list of
// greetings shown one after another, followed by a short exit hold and a
// single completion callback.
package welcome

import (
	"sync"
	"time"
)

// Phase is the coarse state of a Sequencer.
type Phase int

const (
	PhaseAdvancing Phase = iota
	PhaseExiting
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseAdvancing:
		return "advancing"
	case PhaseExiting:
		return "exiting"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Durations configures the timing of a sequence.
type Durations struct {
	Dwell    time.Duration
	ExitHold time.Duration
}

// DefaultDurations matches the splash shown on the home page.
var DefaultDurations = Durations{
	Dwell:    1200 * time.Millisecond,
	ExitHold: 500 * time.Millisecond,
}

func (d Durations) Validate() error {
	if d.Dwell <= 0 || d.ExitHold <= 0 {
		return ErrInvalidDurations
	}
	return nil
}

// Frame is what the view layer renders for the current state. Progress is
// the fraction of entries already shown in full; it reaches 1 only when the
// sequence starts exiting.
type Frame struct {
	Entry    *Translation `json:"entry"`
	Index    int          `json:"index"`
	Total    int          `json:"total"`
	Progress float64      `json:"progress"`
	Phase    Phase        `json:"phase"`
	Visible  bool         `json:"visible"`
}

// Position is the 1-based number of the entry on screen, 0 once complete.
func (f Frame) Position() int {
	if f.Entry == nil {
		return 0
	}
	return f.Index + 1
}

type Option func(*Sequencer)

func WithDurations(d Durations) Option {
	return func(s *Sequencer) { s.durations = d }
}

func WithClock(c Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

// WithObserver registers fn to receive the frame produced by Start and by
// every later transition. fn runs on the timer goroutine without any lock
// held and must not block for long.
func WithObserver(fn func(Frame)) Option {
	return func(s *Sequencer) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// Sequencer owns the state of one splash session and at most one pending
// timer. It is safe for concurrent use.
type Sequencer struct {
	translations []Translation
	durations    Durations
	clock        Clock
	observers    []func(Frame)

	mu         sync.Mutex
	onComplete func()
	index      int
	phase      Phase
	started    bool
	disposed   bool
	timer      Timer
	gen        uint64
	done       chan struct{}
	closeDone  sync.Once
}

// New validates its inputs and returns an idle sequencer in Advancing(0).
// Call Start to begin the first dwell.
func New(translations []Translation, onComplete func(), opts ...Option) (*Sequencer, error) {
	if len(translations) == 0 {
		return nil, ErrNoTranslations
	}
	if onComplete == nil {
		return nil, ErrNilCallback
	}

	s := &Sequencer{
		translations: append([]Translation(nil), translations...),
		durations:    DefaultDurations,
		clock:        SystemClock(),
		onComplete:   onComplete,
		phase:        PhaseAdvancing,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.durations.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is like New but panics on invalid input.
func MustNew(translations []Translation, onComplete func(), opts ...Option) *Sequencer {
	s, err := New(translations, onComplete, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Start creates a sequencer and starts it.
func Start(translations []Translation, onComplete func(), opts ...Option) (*Sequencer, error) {
	s, err := New(translations, onComplete, opts...)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}

// Start schedules the first dwell. Calling it again, or after Dispose, does
// nothing.
func (s *Sequencer) Start() {
	s.mu.Lock()
	if s.started || s.disposed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.scheduleLocked(s.durations.Dwell, s.advance)
	frame := s.frameLocked()
	s.mu.Unlock()

	s.notify(frame)
}

// Dispose cancels the pending timer. No transition happens afterwards and the
// completion callback never fires if it has not already. Safe to call more
// than once.
func (s *Sequencer) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.onComplete = nil
	s.mu.Unlock()

	s.closeDone.Do(func() { close(s.done) })
}

// Done is closed when the sequence completes or is disposed.
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}

// Frame returns the render state for the current phase.
func (s *Sequencer) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

func (s *Sequencer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Durations reports the dwell and exit-hold the sequencer runs with.
func (s *Sequencer) Durations() Durations {
	return s.durations
}

// scheduleLocked arms the single pending timer. The generation number makes
// a callback that lost a race with Dispose or a reschedule a no-op.
func (s *Sequencer) scheduleLocked(d time.Duration, fn func(gen uint64)) {
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { fn(gen) })
}

func (s *Sequencer) advance(gen uint64) {
	s.mu.Lock()
	if s.disposed || gen != s.gen || s.phase != PhaseAdvancing {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	if next := s.index + 1; next < len(s.translations) {
		s.index = next
		s.scheduleLocked(s.durations.Dwell, s.advance)
	} else {
		s.phase = PhaseExiting
		s.scheduleLocked(s.durations.ExitHold, s.complete)
	}
	frame := s.frameLocked()
	s.mu.Unlock()

	s.notify(frame)
}

func (s *Sequencer) complete(gen uint64) {
	s.mu.Lock()
	if s.disposed || gen != s.gen || s.phase != PhaseExiting {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.phase = PhaseComplete
	onComplete := s.onComplete
	s.onComplete = nil
	frame := s.frameLocked()
	s.mu.Unlock()

	s.notify(frame)
	if onComplete != nil {
		onComplete()
	}
	s.closeDone.Do(func() { close(s.done) })
}

func (s *Sequencer) frameLocked() Frame {
	total := len(s.translations)
	f := Frame{
		Index: s.index,
		Total: total,
		Phase: s.phase,
	}
	switch s.phase {
	case PhaseAdvancing:
		entry := s.translations[s.index]
		f.Entry = &entry
		f.Visible = true
		f.Progress = float64(s.index) / float64(total)
	case PhaseExiting:
		entry := s.translations[s.index]
		f.Entry = &entry
		f.Visible = true
		f.Progress = 1
	case PhaseComplete:
		f.Progress = 1
	}
	return f
}

func (s *Sequencer) notify(f Frame) {
	for _, fn := range s.observers {
		fn(f)
	}
}
