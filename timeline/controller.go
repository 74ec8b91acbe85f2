/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package timeline sequences the user actions of the health timeline page:
// gate, identifier resolution, backend call, state update and rendering.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/humaidq/medtimeline/backend"
	"github.com/humaidq/medtimeline/logging"
	"github.com/humaidq/medtimeline/uistate"
	"github.com/humaidq/medtimeline/view"
)

var logger = logging.Logger(logging.SourceWeb)

// Accepted layouts of the event time input.
var eventTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// Backend is the set of backend capabilities the controller dispatches to.
type Backend interface {
	Login(ctx context.Context, cr backend.Credentials) (*backend.Account, error)
	Register(ctx context.Context, r backend.Registration) (*backend.Account, error)
	Logout(ctx context.Context) error
	Ingest(ctx context.Context, draft backend.EventDraft) (*backend.IngestResult, error)
	UploadDocument(ctx context.Context, doc backend.Document) (*backend.UploadResult, error)
	TimelineSummary(ctx context.Context, patientID string) (*backend.TimelineSummary, error)
	Explain(ctx context.Context, patientID, query string) (*backend.Explanation, error)
	ExportPDF(ctx context.Context, patientID string) (*backend.PDFExport, error)
}

// NoticeLevel is the severity of a notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a one-off message for the user.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Outcome is the result of one user action. Started is false when the
// action was rejected because a conflicting operation is running.
type Outcome struct {
	Started  bool
	Notice   *Notice
	Download *backend.PDFExport
}

// failure reports a failed call. Input problems are shown plainly, backend
// failures with the error marker.
func failure(err error) Outcome {
	if backend.KindOf(err) == backend.KindValidation {
		return withNotice(NoticeError, Message(err))
	}
	return withNotice(NoticeError, "❌ "+Message(err))
}

func started() Outcome {
	return Outcome{Started: true}
}

func withNotice(level NoticeLevel, message string) Outcome {
	return Outcome{Started: true, Notice: &Notice{Level: level, Message: message}}
}

// Messages shown when neither identifier field holds a patient id.
const (
	missingIngestID   = "Please fill Patient ID, Event Type, and Content"
	missingUploadID   = "Please enter a Patient ID"
	missingTimelineID = "Please enter Patient ID (Ingest or Analyze section)"
	missingAnalysisID = "Please enter Patient ID and query"
	missingExportID   = "Please enter Patient ID"
)

// Controller runs user actions against the backend and a page state.
type Controller struct {
	backend Backend
	gates   *uistate.Registry
	loc     *time.Location
}

// NewController creates a controller. Times are shown and parsed in loc.
func NewController(b Backend, gates *uistate.Registry, loc *time.Location) (*Controller, error) {
	if b == nil {
		return nil, ErrBackendRequired
	}
	if gates == nil {
		gates = uistate.NewRegistry()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Controller{backend: b, gates: gates, loc: loc}, nil
}

// Controls returns the trigger control state of a browser session.
func (c *Controller) Controls(sid string) uistate.Controls {
	return c.gates.Flags(sid).Controls()
}

// Location is the display time zone.
func (c *Controller) Location() *time.Location {
	return c.loc
}

// Login signs in and starts the page session.
func (c *Controller) Login(ctx context.Context, st *uistate.State, cr backend.Credentials) Outcome {
	acct, err := c.backend.Login(ctx, cr)
	if err != nil {
		return withNotice(NoticeError, Message(err))
	}
	if err := c.signIn(ctx, st, acct); err != nil {
		return withNotice(NoticeError, Message(err))
	}

	return withNotice(NoticeSuccess, "Welcome back, "+acct.Username+"!")
}

// Register creates an account and starts the page session.
func (c *Controller) Register(ctx context.Context, st *uistate.State, r backend.Registration) Outcome {
	acct, err := c.backend.Register(ctx, r)
	if err != nil {
		return withNotice(NoticeError, Message(err))
	}
	if err := c.signIn(ctx, st, acct); err != nil {
		return withNotice(NoticeError, Message(err))
	}

	return withNotice(NoticeSuccess, fmt.Sprintf("Welcome %s! Your Patient ID: %s", acct.Username, acct.PatientID))
}

func (c *Controller) signIn(ctx context.Context, st *uistate.State, acct *backend.Account) error {
	cookies := make([]uistate.Cookie, 0, len(acct.Cookies))
	for _, ck := range acct.Cookies {
		cookies = append(cookies, uistate.Cookie{Name: ck.Name, Value: ck.Value})
	}

	if err := st.LoginSucceeded(uistate.User{PatientID: acct.PatientID, Username: acct.Username}, cookies); err != nil {
		return err
	}

	c.RefreshStats(ctx, st)

	return nil
}

// Logout ends the page session. The session is cleared even when the
// backend call fails.
func (c *Controller) Logout(ctx context.Context, st *uistate.State) Outcome {
	if err := c.backend.Logout(c.withCookies(ctx, st)); err != nil {
		logger.Warn("Backend logout failed", "error", err)
	}
	st.LoggedOut()

	return withNotice(NoticeInfo, "Signed out")
}

// Ingest adds a health event built from the workspace fields.
func (c *Controller) Ingest(ctx context.Context, sid string, st *uistate.State) Outcome {
	if !c.gates.Start(sid, uistate.OpIngest) {
		return Outcome{}
	}
	defer c.gates.Finish(sid, uistate.OpIngest)

	patientID, ok := st.PatientID()
	if !ok {
		return withNotice(NoticeError, missingIngestID)
	}

	draft, err := c.draft(st, patientID)
	if err != nil {
		return withNotice(NoticeError, Message(err))
	}

	res, err := c.backend.Ingest(c.withCookies(ctx, st), draft)
	if err != nil {
		return failure(err)
	}

	st.EventIngested()
	c.RefreshStats(ctx, st)

	return withNotice(NoticeSuccess, fmt.Sprintf("✅ Event added! ID: %s...", res.ShortID()))
}

func (c *Controller) draft(st *uistate.State, patientID string) (backend.EventDraft, error) {
	f := st.Fields

	draft := backend.EventDraft{
		PatientID:   patientID,
		PatientName: f.PatientName,
		DoctorName:  f.DoctorName,
		EventType:   f.EventType,
		Content:     f.Content,
	}

	if raw := strings.TrimSpace(f.EventTime); raw != "" {
		ts, err := c.parseEventTime(raw)
		if err != nil {
			return backend.EventDraft{}, err
		}
		draft.Timestamp = &ts
	}

	return draft, nil
}

func (c *Controller) parseEventTime(raw string) (time.Time, error) {
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidEventTime, raw)
}

// SelectFile replaces the pending document.
func (c *Controller) SelectFile(st *uistate.State, f uistate.SelectedFile) Outcome {
	if f.Name == "" || len(f.Data) == 0 {
		return withNotice(NoticeError, "Please select a file first")
	}
	st.FileSelected(f)

	return withNotice(NoticeInfo, "Selected "+f.Name)
}

// Upload sends the pending document to the resolved patient record.
func (c *Controller) Upload(ctx context.Context, st *uistate.State) Outcome {
	f := st.SelectedFile
	if f == nil || len(f.Data) == 0 {
		return withNotice(NoticeError, "Please select a file first")
	}

	patientID, ok := st.PatientID()
	if !ok {
		return withNotice(NoticeError, missingUploadID)
	}

	doc := backend.Document{
		PatientID:   patientID,
		Filename:    f.Name,
		ContentType: f.ContentType,
		Data:        f.Data,
		Notes:       st.Fields.DocumentNotes,
	}

	res, err := c.backend.UploadDocument(c.withCookies(ctx, st), doc)
	if err != nil {
		if backend.KindOf(err) == backend.KindValidation {
			return withNotice(NoticeError, Message(err))
		}
		st.OutputReplaced(view.RenderError(Message(err)))
		return started()
	}

	out, err := view.RenderUpload(view.NewUpload(res))
	if err != nil {
		st.OutputReplaced(view.RenderError("Upload failed: " + err.Error()))
		return started()
	}
	st.OutputReplaced(out)
	st.DocumentUploaded()
	c.RefreshStats(ctx, st)

	return started()
}

// Summarize loads the patient timeline into the output surface.
func (c *Controller) Summarize(ctx context.Context, sid string, st *uistate.State) Outcome {
	if !c.gates.Start(sid, uistate.OpSummarize) {
		return Outcome{}
	}
	defer c.gates.Finish(sid, uistate.OpSummarize)

	patientID, ok := st.PatientID()
	if !ok {
		st.OutputReplaced(view.RenderError(missingTimelineID))
		return started()
	}

	summary, err := c.backend.TimelineSummary(c.withCookies(ctx, st), patientID)
	if err != nil {
		st.OutputReplaced(view.RenderError(Message(err)))
		return started()
	}

	out := c.renderTimeline(summary)
	st.OutputReplaced(out)
	if out.Kind != view.KindTimeline {
		return started()
	}
	st.StatsUpdated(view.StatsFrom(summary, c.loc))

	return started()
}

// Analyze runs the analysis query into the output surface.
func (c *Controller) Analyze(ctx context.Context, sid string, st *uistate.State) Outcome {
	if !c.gates.Start(sid, uistate.OpAnalyze) {
		return Outcome{}
	}
	defer c.gates.Finish(sid, uistate.OpAnalyze)

	patientID, ok := st.PatientID()
	if !ok {
		st.OutputReplaced(view.RenderError(missingAnalysisID))
		return started()
	}

	exp, err := c.backend.Explain(c.withCookies(ctx, st), patientID, st.Fields.Query)
	if err != nil {
		st.OutputReplaced(view.RenderError(Message(err)))
		return started()
	}

	out, err := view.RenderAnalysis(view.NewAnalysis(exp, c.loc))
	if err != nil {
		st.OutputReplaced(view.RenderError("Failed to run analysis: " + err.Error()))
		return started()
	}
	st.OutputReplaced(out)

	return started()
}

// Export downloads the patient timeline as a PDF.
func (c *Controller) Export(ctx context.Context, st *uistate.State) Outcome {
	patientID, ok := st.PatientID()
	if !ok {
		return withNotice(NoticeError, missingExportID)
	}

	pdf, err := c.backend.ExportPDF(c.withCookies(ctx, st), patientID)
	if err != nil {
		return failure(err)
	}

	return Outcome{Started: true, Download: pdf}
}

// ShareLink builds the shareable link of the resolved patient.
func (c *Controller) ShareLink(origin string, st *uistate.State) (view.Share, error) {
	patientID, ok := st.PatientID()
	if !ok {
		return view.Share{}, ErrNoPatientID
	}

	return view.NewShare(origin, patientID)
}

// PatientTimeline renders the timeline of a shared patient link. It does
// not touch the page state.
func (c *Controller) PatientTimeline(ctx context.Context, st *uistate.State, patientID string) uistate.Output {
	summary, err := c.backend.TimelineSummary(c.withCookies(ctx, st), patientID)
	if err != nil {
		return view.RenderError(Message(err))
	}

	return c.renderTimeline(summary)
}

func (c *Controller) renderTimeline(summary *backend.TimelineSummary) uistate.Output {
	tl := view.NewTimeline(summary, c.loc)
	chart, err := view.ActivityChart(summary.Timeline, c.loc)
	if err != nil {
		logger.Warn("Failed to render activity chart", "error", err)
	}
	tl.Chart = chart

	out, err := view.RenderTimeline(tl)
	if err != nil {
		return view.RenderError("Failed to summarize timeline: " + err.Error())
	}
	return out
}

// RefreshStats reloads the event counters. Failures are logged and the
// previous counters kept.
func (c *Controller) RefreshStats(ctx context.Context, st *uistate.State) {
	patientID, ok := st.PatientID()
	if !ok {
		return
	}

	summary, err := c.backend.TimelineSummary(c.withCookies(ctx, st), patientID)
	if err != nil {
		logger.Warn("Failed to refresh stats", "patient_id", patientID, "error", err)
		return
	}

	st.StatsUpdated(view.StatsFrom(summary, c.loc))
}

func (c *Controller) withCookies(ctx context.Context, st *uistate.State) context.Context {
	if len(st.BackendCookies) == 0 {
		return ctx
	}

	cookies := make([]*http.Cookie, 0, len(st.BackendCookies))
	for _, ck := range st.BackendCookies {
		cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	return backend.WithCookies(ctx, cookies)
}

// Message is the user-facing text of an action error.
func Message(err error) string {
	var be *backend.Error
	switch {
	case errors.As(err, &be):
		return be.Message
	case errors.Is(err, ErrNoPatientID):
		return "Please enter Patient ID first"
	case errors.Is(err, ErrInvalidEventTime):
		return "Please enter a valid event time"
	case errors.Is(err, uistate.ErrEmptyPatientID):
		return "The server did not return a Patient ID"
	default:
		return err.Error()
	}
}
