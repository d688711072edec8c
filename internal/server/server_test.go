package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/i18n"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/mail"
	"github.com/Zachkp/folio/internal/storage"
	"github.com/Zachkp/folio/internal/views"
	"github.com/Zachkp/folio/internal/visitors"
	"github.com/Zachkp/folio/internal/welcome"
	"github.com/Zachkp/folio/internal/welcome/welcometest"
)

const testAdminToken = "test-admin-token"

var testDurations = welcome.Durations{Dwell: 100 * time.Millisecond, ExitHold: 50 * time.Millisecond}

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSender struct {
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

var errCounterDown = errors.New("counter unavailable")

// brokenCounter fails every call, like a Redis outage.
type brokenCounter struct{}

func (brokenCounter) Views(context.Context, []string) (map[string]int64, error) {
	return nil, errCounterDown
}

func (brokenCounter) Record(context.Context, string, string) (int64, bool, error) {
	return 0, false, errCounterDown
}

type testEnv struct {
	srv    *Server
	clock  *welcometest.FakeClock
	sender *fakeSender
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Discard()

	db, err := storage.OpenAndMigrate(context.Background(), ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tr, err := i18n.New(log)
	require.NoError(t, err)
	hasher, err := visitors.NewHasher("test-salt")
	require.NoError(t, err)

	cfg := &config.Config{
		Welcome: config.WelcomeConfig{Dwell: testDurations.Dwell, ExitHold: testDurations.ExitHold},
		Content: config.ContentConfig{Pinned: []string{"folio"}},
		Admin:   config.AdminConfig{Username: "admin", Password: "secret"},
	}
	store := content.NewStore([]content.Project{
		{Slug: "folio", Title: "Folio", Published: true, Date: date(2024, 1, 1), Body: "<p>site</p>"},
		{Slug: "termail", Title: "termail", Published: true, Date: date(2025, 3, 2)},
		{Slug: "tunes", Title: "Tunes", Published: true, Date: date(2024, 6, 1)},
		{Slug: "next-thing", Title: "Next Thing", Published: true},
		{Slug: "scratch", Title: "Scratch", Published: false},
	})
	profile := &content.Profile{
		Name:  "Zach",
		About: "Builds things.",
		Experience: []content.Entry{
			{Title: "Manager", Organization: "Catering", Start: "Aug 2016", End: "Present", Highlights: []string{"Menus"}},
		},
		Education: []content.Entry{
			{Title: "Computer Science", Organization: "WGU", Start: "2019", End: "2023"},
		},
	}

	clock := welcometest.NewFakeClock()
	sender := &fakeSender{}
	srv, err := New(Deps{
		Config:   cfg,
		Log:      log,
		Projects: store,
		Profile:  profile,
		Views:    views.NewSQLiteCounter(db),
		Visitors: visitors.NewTracker(db),
		Hasher:   hasher,
		Contact:  mail.NewService(sender, mail.NewInbox(db)),
		I18n:     tr,
		Greetings: []welcome.Translation{
			{Text: "Welcome", LanguageName: "English", LanguageCode: "en"},
			{Text: "Bienvenue", LanguageName: "French", LanguageCode: "fr"},
			{Text: "Willkommen", LanguageName: "German", LanguageCode: "de"},
		},
		Clock:      clock,
		AdminToken: testAdminToken,
	})
	require.NoError(t, err)
	return &testEnv{srv: srv, clock: clock, sender: sender}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) admin(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(&http.Cookie{Name: adminCookieName, Value: testAdminToken})
	return e.do(req)
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)

	env := newTestEnv(t)
	d := env.srv.Deps
	d.Greetings = nil
	_, err = New(d)
	assert.ErrorIs(t, err, welcome.ErrNoTranslations)

	d = env.srv.Deps
	cfg := *d.Config
	cfg.Welcome.Dwell = 0
	d.Config = &cfg
	_, err = New(d)
	assert.ErrorIs(t, err, welcome.ErrInvalidDurations)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHome(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Zach")
	assert.Contains(t, body, "Builds things.")
	assert.Contains(t, body, `data-stream="/welcome/stream?lang=en"`)
	// pinned plus the two most recent
	assert.Contains(t, body, "Folio")
	assert.Contains(t, body, "Next Thing")
	assert.Contains(t, body, "termail")
	assert.NotContains(t, body, "Tunes")
}

func TestWorkAndEducationContent(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/work-content")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Catering")
	assert.Contains(t, w.Body.String(), "Menus")

	w = env.get("/education-content")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "WGU")
}

func TestVisitorTracking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.get("/")
	env.get("/static/style.css")
	env.get("/privacy")
	env.get("/does-not-exist")

	dnt := httptest.NewRequest(http.MethodGet, "/projects", nil)
	dnt.Header.Set("DNT", "1")
	env.do(dnt)

	visits, err := env.srv.Visitors.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "/", visits[0].Path)
	assert.Len(t, visits[0].HashedIP, 16)
	assert.NotContains(t, visits[0].HashedIP, "192.0.2.1")
}

func TestProjectList(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/projects")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.NotContains(t, body, "Scratch")
	assert.Contains(t, body, "Coming Soon")
	assert.Contains(t, body, "0 views")

	order := []string{"project-folio", "project-next-thing", "project-termail", "project-tunes"}
	last := -1
	for _, id := range order {
		idx := strings.Index(body, id)
		require.Greater(t, idx, last, id)
		last = idx
	}
}

func TestProjectList_Spanish(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9,en;q=0.5")

	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Próximamente")
	assert.Contains(t, w.Body.String(), `lang="es"`)
}

func TestProjectPage_RecordsViewOncePerVisitor(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/projects/termail")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1 view")

	w = env.get("/projects/termail")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1 view")

	other := httptest.NewRequest(http.MethodGet, "/projects/termail", nil)
	other.RemoteAddr = "198.51.100.7:4321"
	w = env.do(other)
	assert.Contains(t, w.Body.String(), "2 views")

	counts, err := env.srv.Views.Views(context.Background(), []string{"termail"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["termail"])
}

func TestProjectPage_NotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/projects/missing", "/projects/scratch"} {
		w := env.get(path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "That project does not exist.")
	}

	counts, err := env.srv.Views.Views(context.Background(), []string{"scratch"})
	require.NoError(t, err)
	assert.Zero(t, counts["scratch"])
}

func TestPages_CounterOutage(t *testing.T) {
	env := newTestEnv(t)
	d := env.srv.Deps
	d.Views = brokenCounter{}
	srv, err := New(d)
	require.NoError(t, err)
	env.srv = srv

	w := env.get("/projects")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "project-termail")
	assert.Contains(t, w.Body.String(), "0 views")

	w = env.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Folio")
	assert.Contains(t, w.Body.String(), "0 views")

	w = env.get("/projects/termail")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "0 views")

	w = env.admin(http.MethodGet, "/admin/api/stats")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), errCounterDown.Error())

	w = env.admin(http.MethodGet, "/admin/dashboard")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load statistics")
}

func TestWelcomeFrame(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/welcome/frame?lang=es")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Frame struct {
			Entry    welcome.Translation `json:"entry"`
			Index    int                 `json:"index"`
			Total    int                 `json:"total"`
			Progress float64             `json:"progress"`
			Phase    string              `json:"phase"`
			Visible  bool                `json:"visible"`
			Label    string              `json:"label"`
		} `json:"frame"`
		DwellMs    int64                 `json:"dwellMs"`
		ExitHoldMs int64                 `json:"exitHoldMs"`
		Greetings  []welcome.Translation `json:"greetings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "Welcome", body.Frame.Entry.Text)
	assert.Equal(t, 0, body.Frame.Index)
	assert.Equal(t, 3, body.Frame.Total)
	assert.Equal(t, "advancing", body.Frame.Phase)
	assert.True(t, body.Frame.Visible)
	assert.Zero(t, body.Frame.Progress)
	assert.Equal(t, "Idioma 1 de 3", body.Frame.Label)
	assert.Equal(t, int64(100), body.DwellMs)
	assert.Equal(t, int64(50), body.ExitHoldMs)
	assert.Len(t, body.Greetings, 3)
	assert.Zero(t, env.clock.Pending())
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, raw string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(raw), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
		}
		events = append(events, ev)
	}
	return events
}

// serveAsync runs the request on its own goroutine and waits until the
// sequencer has armed its first timer.
func (e *testEnv) serveAsync(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, <-chan struct{}) {
	t.Helper()
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.srv.Handler().ServeHTTP(w, req)
	}()
	require.Eventually(t, func() bool { return e.clock.Pending() > 0 }, time.Second, time.Millisecond)
	return w, done
}

func TestWelcomeStream_PlaysToCompletion(t *testing.T) {
	env := newTestEnv(t)
	w, done := env.serveAsync(t, httptest.NewRequest(http.MethodGet, "/welcome/stream", nil))

	env.clock.Advance(3*testDurations.Dwell + testDurations.ExitHold)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
	}

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	events := parseSSE(t, w.Body.String())
	require.Len(t, events, 6)

	wantPhases := []string{"advancing", "advancing", "advancing", "exiting", "complete"}
	var progress float64
	for i, want := range wantPhases {
		assert.Equal(t, "frame", events[i].name)
		var f struct {
			Index    int     `json:"index"`
			Progress float64 `json:"progress"`
			Phase    string  `json:"phase"`
			Visible  bool    `json:"visible"`
			Label    string  `json:"label"`
		}
		require.NoError(t, json.Unmarshal([]byte(events[i].data), &f))
		assert.Equal(t, want, f.Phase, "frame %d", i)
		assert.GreaterOrEqual(t, f.Progress, progress)
		progress = f.Progress
		if want == "advancing" {
			assert.Equal(t, i, f.Index)
			assert.Less(t, f.Progress, 1.0)
		}
		if want == "complete" {
			assert.False(t, f.Visible)
			assert.Empty(t, f.Label)
		}
	}
	assert.Contains(t, events[0].data, `"label":"Language 1 of 3"`)
	assert.Equal(t, "complete", events[5].name)
	assert.JSONEq(t, `{"total":3}`, events[5].data)
	assert.Zero(t, env.clock.Pending())
}

func TestWelcomeStream_DisconnectDisposes(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/welcome/stream", nil).WithContext(ctx)

	w, done := env.serveAsync(t, req)
	env.clock.Advance(testDurations.Dwell)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after disconnect")
	}

	assert.Zero(t, env.clock.Pending())
	env.clock.Advance(time.Second)
	assert.NotContains(t, w.Body.String(), "event:complete")
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestContact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w := env.get("/contact-form")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="fullName"`)

	valid := url.Values{"fullName": {"Ada"}, "email": {"ada@example.com"}, "message": {"Hello"}}
	w = env.do(postForm("/contact", valid))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alert-success")
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, "Ada", env.sender.sent[0].Name)

	invalid := url.Values{"fullName": {"Ada"}, "email": {"nope"}, "message": {"Hello"}}
	w = env.do(postForm("/contact", invalid))
	assert.Contains(t, w.Body.String(), "alert-error")
	assert.Contains(t, w.Body.String(), "valid email address")

	long := url.Values{"fullName": {"Ada"}, "email": {"ada@example.com"}, "message": {strings.Repeat("é", 5001)}}
	w = env.do(postForm("/contact", long))
	assert.Contains(t, w.Body.String(), "alert-error")
	assert.Len(t, env.sender.sent, 1)

	env.sender.err = errors.New("smtp down")
	w = env.do(postForm("/contact", valid))
	assert.Contains(t, w.Body.String(), "alert-error")
	assert.Contains(t, w.Body.String(), "try again later")

	total, undelivered, err := env.srv.Contact.Inbox().Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), undelivered)
}

func TestAdmin_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/admin/dashboard", "/admin/api/stats", "/admin/visitors", "/admin/export/stats"} {
		w := env.get(path)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/admin/login", w.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: adminCookieName, Value: "forged"})
	assert.Equal(t, http.StatusFound, env.do(req).Code)
}

func TestAdmin_Login(t *testing.T) {
	env := newTestEnv(t)

	w := env.get("/admin/login")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = env.do(postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"secret"}}))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.Equal(t, testAdminToken, session.Value)
	assert.True(t, session.HttpOnly)

	w = env.get("/admin/logout")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), adminCookieName+"=;")
}

func TestAdmin_Stats(t *testing.T) {
	env := newTestEnv(t)
	env.get("/")
	env.get("/projects/termail")

	w := env.admin(http.MethodGet, "/admin/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "termail")

	w = env.admin(http.MethodGet, "/admin/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats AdminStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.TotalVisitors)
	assert.Equal(t, int64(1), stats.UniqueVisitors)
	assert.Equal(t, int64(1), stats.ProjectViews["termail"])
	assert.Equal(t, int64(0), stats.ProjectViews["folio"])
	assert.Equal(t, int64(1), stats.TotalViews)

	w = env.admin(http.MethodGet, "/admin/export/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=admin-stats.json", w.Header().Get("Content-Disposition"))

	w = env.admin(http.MethodGet, "/admin/visitors")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/projects/termail")
}

func TestAdmin_Cleanup(t *testing.T) {
	env := newTestEnv(t)
	env.get("/")

	w := env.admin(http.MethodPost, "/admin/privacy/cleanup")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Privacy cleanup complete","visits_removed":0,"dedup_purged":0}`, w.Body.String())
}
