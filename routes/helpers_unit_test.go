// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/medtimeline/backend"
	"github.com/humaidq/medtimeline/timeline"
	"github.com/humaidq/medtimeline/uistate"
)

type testSession struct {
	mu    sync.Mutex
	id    string
	data  map[interface{}]interface{}
	flash interface{}
}

func newTestSession() *testSession {
	return &testSession{
		id:   "test-session",
		data: make(map[interface{}]interface{}),
	}
}

func (s *testSession) ID() string {
	return s.id
}

func (s *testSession) RegenerateID(http.ResponseWriter, *http.Request) error {
	return nil
}

func (s *testSession) Get(key interface{}) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.data[key]
}

func (s *testSession) Set(key, val interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = val
}

func (s *testSession) SetFlash(val interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flash = val
}

func (s *testSession) Delete(key interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

func (s *testSession) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[interface{}]interface{})
}

func (s *testSession) Encode() ([]byte, error) {
	return nil, nil
}

func (s *testSession) HasChanged() bool {
	return true
}

type testCSRF struct {
	token string
}

func (c testCSRF) Token() string {
	return c.token
}

func (c testCSRF) ValidToken(string) bool {
	return true
}

func (c testCSRF) Error(http.ResponseWriter) {}

func (c testCSRF) Validate(flamego.Context) {}

type testTemplate struct {
	status int
	name   string
}

func (t *testTemplate) HTML(status int, name string) {
	t.status = status
	t.name = name
}

type testApp struct {
	f     *flamego.Flame
	s     *testSession
	tpl   *testTemplate
	data  template.Data
	gates *uistate.Registry
	hits  *atomic.Int32
}

// newTestApp wires the handlers to a controller talking to a fake backend.
func newTestApp(t *testing.T, handler http.HandlerFunc) *testApp {
	t.Helper()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := backend.New(server.URL)
	if err != nil {
		t.Fatalf("backend.New failed: %v", err)
	}

	gates := uistate.NewRegistry()
	ctrl, err := timeline.NewController(client, gates, time.UTC)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}

	app := &testApp{
		f:     flamego.New(),
		s:     newTestSession(),
		tpl:   &testTemplate{},
		data:  template.Data{},
		gates: gates,
		hits:  &hits,
	}

	app.f.Map(ctrl)
	app.f.Map(Config{PublicURL: "https://records.example"})
	app.f.Use(func(c flamego.Context) {
		c.MapTo(app.s, (*session.Session)(nil))
		c.MapTo(app.tpl, (*template.Template)(nil))
		c.Map(app.data)
		c.Next()
	})

	app.f.Get("/", Home)
	app.f.Get("/share", Share)
	app.f.Get("/patient/{id}", PatientTimeline)
	app.f.Post("/login", Login)
	app.f.Post("/register", Register)
	app.f.Post("/logout", Logout)
	app.f.Post("/ingest", Ingest)
	app.f.Post("/document/select", SelectDocument)
	app.f.Post("/document/upload", UploadDocument)
	app.f.Post("/summary", Summary)
	app.f.Post("/analyze", Analyze)
	app.f.Post("/export", Export)

	return app
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	a.f.ServeHTTP(rec, req)

	return rec
}

func (a *testApp) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	a.f.ServeHTTP(rec, req)

	return rec
}

func (a *testApp) state() uistate.State {
	return *loadState(a.s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, wantLocation string) {
	t.Helper()

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}

	if got := rec.Header().Get("Location"); got != wantLocation {
		t.Fatalf("expected redirect %q, got %q", wantLocation, got)
	}
}

func assertFlash(t *testing.T, s *testSession, wantType FlashType, wantMessage string) {
	t.Helper()

	msg, ok := s.flash.(FlashMessage)
	if !ok {
		t.Fatalf("expected flash message, got %T", s.flash)
	}

	if msg.Type != wantType || msg.Message != wantMessage {
		t.Fatalf("unexpected flash message: %#v", msg)
	}
}

func assertNoFlash(t *testing.T, s *testSession) {
	t.Helper()

	if s.flash != nil {
		t.Fatalf("expected no flash message, got %#v", s.flash)
	}
}

func TestSetFlashHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		set     func(session.Session, string)
		wantTyp FlashType
	}{
		{name: "error", set: SetErrorFlash, wantTyp: FlashError},
		{name: "success", set: SetSuccessFlash, wantTyp: FlashSuccess},
		{name: "warning", set: SetWarningFlash, wantTyp: FlashWarning},
		{name: "info", set: SetInfoFlash, wantTyp: FlashInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestSession()
			tt.set(s, "hello")

			msg, ok := s.flash.(FlashMessage)
			if !ok {
				t.Fatalf("flash has unexpected type: %T", s.flash)
			}

			if msg.Type != tt.wantTyp || msg.Message != "hello" {
				t.Fatalf("unexpected flash message: %#v", msg)
			}
		})
	}
}

func TestSetNoticeFlash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level timeline.NoticeLevel
		want  FlashType
	}{
		{level: timeline.NoticeSuccess, want: FlashSuccess},
		{level: timeline.NoticeError, want: FlashError},
		{level: timeline.NoticeInfo, want: FlashInfo},
	}

	for _, tt := range tests {
		s := newTestSession()
		setNoticeFlash(s, &timeline.Notice{Level: tt.level, Message: "m"})
		assertFlash(t, s, tt.want, "m")
	}

	s := newTestSession()
	setNoticeFlash(s, nil)
	assertNoFlash(t, s)
}

func TestFlashInjector(t *testing.T) {
	t.Parallel()

	handler, ok := FlashInjector().(func(template.Data, session.Flash))
	if !ok {
		t.Fatalf("unexpected FlashInjector handler type")
	}

	data := template.Data{}
	handler(data, FlashMessage{Type: FlashError, Message: "oops"})

	if got, ok := data["Flash"].(FlashMessage); !ok || got.Message != "oops" {
		t.Fatalf("unexpected Flash value: %#v", data["Flash"])
	}

	empty := template.Data{}
	handler(empty, nil)
	if _, ok := empty["Flash"]; ok {
		t.Fatal("expected no Flash without a pending message")
	}
}

func TestCSRFInjector(t *testing.T) {
	t.Parallel()

	handler, ok := CSRFInjector().(func(csrf.CSRF, template.Data))
	if !ok {
		t.Fatalf("unexpected CSRFInjector handler type")
	}

	data := template.Data{}
	handler(testCSRF{token: "csrf-123"}, data)

	if got, ok := data["csrf_token"].(string); !ok || got != "csrf-123" {
		t.Fatalf("unexpected csrf_token value: %#v", data["csrf_token"])
	}
}

func TestNoCacheHeaders(t *testing.T) {
	t.Parallel()

	f := flamego.New()
	f.Use(NoCacheHeaders())
	f.Get("/", func(c flamego.Context) {
		c.ResponseWriter().WriteHeader(http.StatusNoContent)
	})
	f.Get("/style.css", func(c flamego.Context) {
		c.ResponseWriter().WriteHeader(http.StatusNoContent)
	})
	f.Post("/", func(c flamego.Context) {
		c.ResponseWriter().WriteHeader(http.StatusNoContent)
	})

	getReq := httptest.NewRequest(http.MethodGet, "/", nil)
	getRec := httptest.NewRecorder()
	f.ServeHTTP(getRec, getReq)

	if got := getRec.Header().Get("Cache-Control"); got != "no-store, max-age=0" {
		t.Fatalf("unexpected Cache-Control for GET: %q", got)
	}

	if got := getRec.Header().Get("Pragma"); got != "no-cache" {
		t.Fatalf("unexpected Pragma for GET: %q", got)
	}

	if got := getRec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("unexpected X-Content-Type-Options for GET: %q", got)
	}

	cssReq := httptest.NewRequest(http.MethodGet, "/style.css", nil)
	cssRec := httptest.NewRecorder()
	f.ServeHTTP(cssRec, cssReq)

	if got := cssRec.Header().Get("Cache-Control"); got != "" {
		t.Fatalf("expected stylesheet to stay cacheable, got %q", got)
	}

	postReq := httptest.NewRequest(http.MethodPost, "/", nil)
	postRec := httptest.NewRecorder()
	f.ServeHTTP(postRec, postReq)

	if got := postRec.Header().Get("Cache-Control"); got != "" {
		t.Fatalf("expected no Cache-Control for POST, got %q", got)
	}
}

func TestSetPublicSiteTitle(t *testing.T) {
	t.Setenv(publicSiteTitleEnvVar, "  Family Records  ")

	data := template.Data{}
	setPublicSiteTitle(data)
	if title, _ := data["PageTitle"].(string); title != "Family Records" {
		t.Fatalf("expected title from environment, got %q", title)
	}

	t.Setenv(publicSiteTitleEnvVar, " ")

	data = template.Data{}
	setPublicSiteTitle(data)
	if title, _ := data["PageTitle"].(string); title != defaultSiteTitle {
		t.Fatalf("expected default title, got %q", title)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	var got string
	f := flamego.New()
	f.Get("/", func(c flamego.Context) {
		got = clientIP(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.4, 198.51.100.2 ")
	f.ServeHTTP(httptest.NewRecorder(), req)

	if got != "203.0.113.4" {
		t.Fatalf("expected X-Forwarded-For IP, got %q", got)
	}
}
