/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package uistate

import (
	"slices"
	"strings"
)

// User is the authenticated account of the page.
type User struct {
	PatientID string
	Username  string
}

// SelectedFile is the document waiting to be uploaded.
type SelectedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsImage reports whether the file can be previewed inline.
func (f *SelectedFile) IsImage() bool {
	return f != nil && strings.HasPrefix(f.ContentType, "image/")
}

// Stats are the counters shown next to the workspace.
type Stats struct {
	Events     int
	LastUpdate string
}

// Cookie is a backend authentication cookie replayed on later calls.
type Cookie struct {
	Name  string
	Value string
}

// Fields holds the values of the workspace inputs.
type Fields struct {
	IngestPatientID   string
	PatientName       string
	DoctorName        string
	EventType         string
	Content           string
	EventTime         string
	DocumentNotes     string
	AnalysisPatientID string
	Query             string
}

// Output is the content of the shared output surface.
type Output struct {
	Kind string
	HTML string
}

// State is everything the page remembers between requests.
type State struct {
	User           *User
	Fields         Fields
	SelectedFile   *SelectedFile
	Stats          Stats
	Output         Output
	BackendCookies []Cookie
}

// PatientID resolves the active patient id from the two identifier fields.
func (s *State) PatientID() (string, bool) {
	return ResolvePatientID(s.Fields.IngestPatientID, s.Fields.AnalysisPatientID)
}

// LoggedIn reports whether a user session is present.
func (s *State) LoggedIn() bool {
	return s.User != nil
}

// Welcome is the page heading for the current session.
func (s *State) Welcome() string {
	if s.User == nil {
		return "Your Personal Health Timeline"
	}
	return "Welcome back, " + s.User.Username + "!"
}

// FieldsSubmitted replaces the workspace input values with a submitted form.
func (s *State) FieldsSubmitted(f Fields) {
	s.Fields = f
}

// LoginSucceeded starts a session for u and mirrors its patient id into
// both identifier fields.
func (s *State) LoginSucceeded(u User, cookies []Cookie) error {
	u.PatientID = strings.TrimSpace(u.PatientID)
	if u.PatientID == "" {
		return ErrEmptyPatientID
	}

	s.User = &u
	s.BackendCookies = append([]Cookie(nil), cookies...)
	s.Fields.IngestPatientID = u.PatientID
	s.Fields.AnalysisPatientID = u.PatientID

	return nil
}

// LoggedOut clears the session, both identifier fields and everything
// shown for the previous patient.
func (s *State) LoggedOut() {
	s.User = nil
	s.BackendCookies = nil
	s.Fields.IngestPatientID = ""
	s.Fields.AnalysisPatientID = ""
	s.Stats = Stats{}
	s.Output = Output{}
	s.SelectedFile = nil
}

// EventIngested clears the event inputs after a stored event.
func (s *State) EventIngested() {
	s.Fields.Content = ""
	s.Fields.EventTime = ""
}

// FileSelected replaces any pending file.
func (s *State) FileSelected(f SelectedFile) {
	s.SelectedFile = &f
}

// DocumentUploaded clears the pending file and its notes.
func (s *State) DocumentUploaded() {
	s.SelectedFile = nil
	s.Fields.DocumentNotes = ""
}

// OutputReplaced swaps the output surface content.
func (s *State) OutputReplaced(out Output) {
	s.Output = out
}

// StatsUpdated stores refreshed counters.
func (s *State) StatsUpdated(st Stats) {
	s.Stats = st
}

// Apply copies onto s the regions that differ between base and changed.
// Regions changed by nobody else since base keep the values already in s.
func (s *State) Apply(base, changed *State) {
	if !sameUser(base.User, changed.User) || !slices.Equal(base.BackendCookies, changed.BackendCookies) {
		s.User = changed.User
		s.BackendCookies = changed.BackendCookies
	}
	if base.Fields != changed.Fields {
		s.Fields = changed.Fields
	}
	if base.SelectedFile != changed.SelectedFile {
		s.SelectedFile = changed.SelectedFile
	}
	if base.Stats != changed.Stats {
		s.Stats = changed.Stats
	}
	if base.Output != changed.Output {
		s.Output = changed.Output
	}
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
