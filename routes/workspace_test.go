// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"bytes"
	"context"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/humaidq/medtimeline/uistate"
	"github.com/humaidq/medtimeline/view"
)

func summaryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"timeline": []map[string]string{
			{"timestamp": "2025-01-05T06:00:00Z", "event_type": "Lab", "content": "HbA1c 6.1"},
		},
		"overall_summary": "",
		"semantic_shift":  0.1,
		"data_quality":    map[string]string{"label": "Rich", "description": "ok"},
	})
}

func TestSummaryRejectedLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)

	saved := uistate.State{Fields: uistate.Fields{IngestPatientID: "P1", Query: "old"}}
	saveState(app.s, &saved)

	if !app.gates.Start(app.s.ID(), uistate.OpAnalyze) {
		t.Fatal("expected analysis to start")
	}

	rec := app.post("/summary", url.Values{"ingest_patient_id": {"P9"}, "query": {"new"}})

	assertRedirect(t, rec, "/")
	assertNoFlash(t, app.s)
	if got := app.state(); !reflect.DeepEqual(got, saved) {
		t.Fatalf("rejected summary changed state: %#v", got)
	}
	if app.hits.Load() != 0 {
		t.Fatalf("expected no backend calls, got %d", app.hits.Load())
	}
}

func TestSummaryStoresOutput(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)

	rec := app.post("/summary", url.Values{"analysis_patient_id": {" P2 "}, "query": {"sleep"}})

	assertRedirect(t, rec, "/#output")
	st := app.state()
	if st.Output.Kind != view.KindTimeline {
		t.Fatalf("expected timeline output, got %#v", st.Output)
	}
	if !strings.Contains(st.Output.HTML, view.FallbackSummary) {
		t.Fatalf("expected fallback overview in output")
	}
	if st.Fields.AnalysisPatientID != "P2" || st.Fields.Query != "sleep" {
		t.Fatalf("expected submitted fields kept, got %#v", st.Fields)
	}
	if st.Stats.Events != 1 {
		t.Fatalf("expected stats from summary, got %#v", st.Stats)
	}
	if !app.gates.Flags(app.s.ID()).Idle() {
		t.Fatal("expected gate released")
	}
}

func TestAnalyzeWithoutQueryShowsError(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)

	rec := app.post("/analyze", url.Values{"analysis_patient_id": {"P2"}})

	assertRedirect(t, rec, "/#output")
	st := app.state()
	if st.Output.Kind != view.KindError || !strings.Contains(st.Output.HTML, "Please enter Patient ID and query") {
		t.Fatalf("unexpected output %#v", st.Output)
	}
	if app.hits.Load() != 0 {
		t.Fatalf("expected no backend calls, got %d", app.hits.Load())
	}
}

func TestIngestFlashesEventID(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ingest":
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "event_id": "abcdef0123456789"})
		default:
			summaryHandler(w, r)
		}
	})

	rec := app.post("/ingest", url.Values{
		"ingest_patient_id": {"P1"},
		"event_type":        {"Symptom"},
		"content":           {"Headache"},
	})

	assertRedirect(t, rec, "/")
	assertFlash(t, app.s, FlashSuccess, "✅ Event added! ID: abcdef01...")
	if st := app.state(); st.Fields.Content != "" || st.Stats.Events != 1 {
		t.Fatalf("unexpected state after ingest %#v", st)
	}
}

// blockingBackend holds calls to path until released and serves the rest
// with summaryHandler.
type blockingBackend struct {
	path    string
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
	unblock func()
}

func newBlockingBackend(path string) *blockingBackend {
	b := &blockingBackend{
		path:    path,
		arrived: make(chan struct{}),
		release: make(chan struct{}),
	}
	b.unblock = sync.OnceFunc(func() { close(b.release) })

	return b
}

func (b *blockingBackend) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != b.path {
		summaryHandler(w, r)
		return
	}

	b.once.Do(func() { close(b.arrived) })
	<-b.release

	if r.URL.Path == "/ingest" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "event_id": "abcdef0123456789"})
		return
	}
	summaryHandler(w, r)
}

func TestIngestFinishingAfterSummaryKeepsOutput(t *testing.T) {
	t.Parallel()

	b := newBlockingBackend("/ingest")
	app := newTestApp(t, b.handle)
	// Runs before the fake backend is closed.
	t.Cleanup(b.unblock)

	form := url.Values{
		"ingest_patient_id": {"P1"},
		"event_type":        {"Lab"},
		"content":           {"HbA1c 6.1"},
	}

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- app.post("/ingest", form)
	}()
	<-b.arrived

	assertRedirect(t, app.post("/summary", form), "/#output")
	if st := app.state(); st.Output.Kind != view.KindTimeline {
		t.Fatalf("expected timeline output while ingest runs, got %#v", st.Output)
	}

	b.unblock()
	assertRedirect(t, <-done, "/")

	st := app.state()
	if st.Output.Kind != view.KindTimeline || !strings.Contains(st.Output.HTML, "<table") {
		t.Fatalf("expected summary output to survive the ingest, got %#v", st.Output)
	}
	if st.Fields.Content != "" {
		t.Fatalf("expected ingest to clear the content field, got %q", st.Fields.Content)
	}
	if !app.gates.Flags(app.s.ID()).Idle() {
		t.Fatal("expected gates released")
	}
}

func TestSummaryCompletesAfterRequestCancelled(t *testing.T) {
	t.Parallel()

	b := newBlockingBackend("/timeline-summary")
	app := newTestApp(t, b.handle)
	// Runs before the fake backend is closed.
	t.Cleanup(b.unblock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	form := url.Values{"analysis_patient_id": {"P2"}}
	req := httptest.NewRequest(http.MethodPost, "/summary", strings.NewReader(form.Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		app.f.ServeHTTP(rec, req)
		done <- rec
	}()
	<-b.arrived

	cancel()
	b.unblock()
	assertRedirect(t, <-done, "/#output")

	st := app.state()
	if st.Output.Kind != view.KindTimeline {
		t.Fatalf("expected the dispatched summary to complete, got %#v", st.Output)
	}
	if strings.Contains(st.Output.HTML, "could not reach server") {
		t.Fatalf("summary was cancelled with the browser request: %q", st.Output.HTML)
	}
}

func TestIngestValidationFlash(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)

	rec := app.post("/ingest", url.Values{"ingest_patient_id": {"P1"}})

	assertRedirect(t, rec, "/")
	assertFlash(t, app.s, FlashError, "Please fill Patient ID, Event Type, and Content")
	if app.hits.Load() != 0 {
		t.Fatalf("expected no backend calls, got %d", app.hits.Load())
	}
}

func TestLoginAndLogout(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			writeJSON(w, http.StatusOK, map[string]string{"patient_id": "P-3", "username": "lina"})
		case "/logout":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "down"})
		default:
			summaryHandler(w, r)
		}
	})

	rec := app.post("/login", url.Values{"email": {"lina@example.com"}, "password": {"pw"}})
	assertRedirect(t, rec, "/")
	assertFlash(t, app.s, FlashSuccess, "Welcome back, lina!")

	st := app.state()
	if !st.LoggedIn() || st.Fields.IngestPatientID != "P-3" || st.Fields.AnalysisPatientID != "P-3" {
		t.Fatalf("unexpected state after login %#v", st)
	}

	rec = app.post("/logout", url.Values{})
	assertRedirect(t, rec, "/")

	st = app.state()
	if st.LoggedIn() || st.Fields.IngestPatientID != "" || st.Fields.AnalysisPatientID != "" {
		t.Fatalf("expected cleared session after failed logout, got %#v", st)
	}
}

func TestLoginFailureFlash(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)

	rec := app.post("/login", url.Values{"email": {"lina@example.com"}})
	assertRedirect(t, rec, "/")
	assertFlash(t, app.s, FlashError, "Please enter your email and password")

	if _, ok := app.s.Get(stateSessionKey).(uistate.State); ok {
		t.Fatal("expected no state stored after failed login")
	}
}

func TestExportWritesAttachment(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	})

	rec := app.post("/export", url.Values{"ingest_patient_id": {"P1"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=medical_timeline_P1.pdf" {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected Content-Type %q", got)
	}
	if rec.Body.String() != "%PDF-1.7" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestExportFailureFlash(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No records"})
	})

	rec := app.post("/export", url.Values{"ingest_patient_id": {"P1"}})

	assertRedirect(t, rec, "/")
	assertFlash(t, app.s, FlashError, "❌ No records")
}

func multipartRequest(t *testing.T, path string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return req
}

func TestSelectAndUploadDocument(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload-document":
			writeJSON(w, http.StatusOK, map[string]string{"filename": "scan.png", "extracted_text": "Image stored"})
		default:
			summaryHandler(w, r)
		}
	})

	png := []byte("\x89PNG\r\n\x1a\n0000")
	req := multipartRequest(t, "/document/select", map[string]string{"ingest_patient_id": "P1"}, "scan.png", png)
	rec := httptest.NewRecorder()
	app.f.ServeHTTP(rec, req)

	assertRedirect(t, rec, "/")
	st := app.state()
	if st.SelectedFile == nil || st.SelectedFile.Name != "scan.png" || !st.SelectedFile.IsImage() {
		t.Fatalf("unexpected selected file %#v", st.SelectedFile)
	}

	req = multipartRequest(t, "/document/upload", map[string]string{"ingest_patient_id": "P1", "document_notes": "x-ray"}, "", nil)
	rec = httptest.NewRecorder()
	app.f.ServeHTTP(rec, req)

	assertRedirect(t, rec, "/#output")
	st = app.state()
	if st.Output.Kind != view.KindUpload {
		t.Fatalf("expected upload output, got %#v", st.Output)
	}
	if st.SelectedFile != nil || st.Fields.DocumentNotes != "" {
		t.Fatalf("expected pending document cleared, got %#v", st)
	}
}

func TestSelectDocumentWithoutFile(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)

	req := multipartRequest(t, "/document/select", map[string]string{"ingest_patient_id": "P1"}, "", nil)
	rec := httptest.NewRecorder()
	app.f.ServeHTTP(rec, req)

	assertRedirect(t, rec, "/")
	assertFlash(t, app.s, FlashError, "Please select a file first")
}

func TestShareRequiresPatientID(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)

	rec := app.get("/share")
	assertRedirect(t, rec, "/")
	assertFlash(t, app.s, FlashError, "Please enter Patient ID first")
}

func TestShareRendersLink(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)
	saveState(app.s, &uistate.State{Fields: uistate.Fields{AnalysisPatientID: "P7"}})

	app.get("/share")

	if app.tpl.name != "share" || app.tpl.status != http.StatusOK {
		t.Fatalf("unexpected template render %#v", app.tpl)
	}
	share, ok := app.data["Share"].(view.Share)
	if !ok || share.Link != "https://records.example/patient/P7" {
		t.Fatalf("unexpected share data %#v", app.data["Share"])
	}
}

func TestPatientTimelinePage(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)

	app.get("/patient/P7")

	if app.tpl.name != "patient" {
		t.Fatalf("unexpected template %q", app.tpl.name)
	}
	out, ok := app.data["Output"].(template.HTML)
	if !ok || !strings.Contains(string(out), "HbA1c 6.1") {
		t.Fatalf("unexpected output %#v", app.data["Output"])
	}
	if _, ok := app.s.Get(stateSessionKey).(uistate.State); ok {
		t.Fatal("shared page must not store page state")
	}
}

func TestHomeExposesState(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, summaryHandler)
	saveState(app.s, &uistate.State{
		Fields:       uistate.Fields{IngestPatientID: "P1"},
		Output:       uistate.Output{Kind: view.KindError, HTML: `<p class="error">❌ x</p>`},
		Stats:        uistate.Stats{Events: 3, LastUpdate: "Jan 2, 2025"},
		SelectedFile: &uistate.SelectedFile{Name: "a.png", ContentType: "image/png", Data: []byte("png")},
	})

	app.get("/")

	if app.tpl.name != "index" {
		t.Fatalf("unexpected template %q", app.tpl.name)
	}
	if out, _ := app.data["Output"].(template.HTML); out != `<p class="error">❌ x</p>` {
		t.Fatalf("unexpected output %q", out)
	}
	if has, _ := app.data["HasStats"].(bool); !has {
		t.Fatal("expected stats shown")
	}
	preview, ok := app.data["Preview"].(*string)
	if !ok || !strings.HasPrefix(*preview, "data:image/png;base64,") {
		t.Fatalf("unexpected preview %#v", app.data["Preview"])
	}
}
