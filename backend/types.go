/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package backend

import (
	"net/http"
	"strings"
	"time"
)

// Account is returned by login and registration.
type Account struct {
	PatientID string `json:"patient_id"`
	Username  string `json:"username"`

	// Cookies set by the backend for the new session.
	Cookies []*http.Cookie `json:"-"`
}

// EventDraft is a health event assembled from the ingest form.
type EventDraft struct {
	PatientID   string
	PatientName string
	DoctorName  string
	EventType   string
	Content     string
	// Timestamp is nil when the server should use the current time.
	Timestamp *time.Time
}

// Default names for events without a named patient or doctor.
const (
	DefaultPatientName = "Unknown"
	DefaultDoctorName  = "Self"
)

// Normalize trims the draft and fills in default names.
func (d EventDraft) Normalize() EventDraft {
	d.PatientID = strings.TrimSpace(d.PatientID)
	d.PatientName = strings.TrimSpace(d.PatientName)
	d.DoctorName = strings.TrimSpace(d.DoctorName)
	d.EventType = strings.TrimSpace(d.EventType)
	d.Content = strings.TrimSpace(d.Content)

	if d.PatientName == "" {
		d.PatientName = DefaultPatientName
	}
	if d.DoctorName == "" {
		d.DoctorName = DefaultDoctorName
	}
	if d.Timestamp != nil {
		ts := d.Timestamp.UTC()
		d.Timestamp = &ts
	}

	return d
}

type ingestRequest struct {
	PatientID   string  `json:"patient_id"`
	PatientName string  `json:"patient_name"`
	DoctorName  string  `json:"doctor_name"`
	EventType   string  `json:"event_type"`
	Content     string  `json:"content"`
	Timestamp   *string `json:"timestamp"`
}

// IngestResult is the backend's answer to a stored event.
type IngestResult struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// ShortID is the event id prefix shown in notifications.
func (r IngestResult) ShortID() string {
	if len(r.EventID) <= 8 {
		return r.EventID
	}
	return r.EventID[:8]
}

// Document is a file to attach to a patient record.
type Document struct {
	PatientID   string
	Filename    string
	ContentType string
	Data        []byte
	Notes       string
}

// UploadResult is the backend's answer to an uploaded document.
type UploadResult struct {
	Filename      string `json:"filename"`
	ExtractedText string `json:"extracted_text"`
	Note          string `json:"note"`
}

// TimelineEvent is one row of a patient timeline.
type TimelineEvent struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	Content   string `json:"content"`
}

// DataQuality describes how much the timeline can support.
type DataQuality struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// TimelineSummary is the backend's overview of a patient timeline.
type TimelineSummary struct {
	Timeline       []TimelineEvent `json:"timeline"`
	OverallSummary string          `json:"overall_summary"`
	SemanticShift  float64         `json:"semantic_shift"`
	DataQuality    DataQuality     `json:"data_quality"`
}

// TimeRange bounds the compared records.
type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Difference is the comparison of the earliest and latest matching records.
type Difference struct {
	ChangeLevel   string    `json:"change_level"`
	SemanticShift float64   `json:"semantic_shift"`
	TimeRange     TimeRange `json:"time_range"`
}

// Explanation is the backend's answer to an analysis query.
type Explanation struct {
	Difference  Difference `json:"difference"`
	Explanation string     `json:"explanation"`
}

// PDFExport is a downloaded timeline document.
type PDFExport struct {
	Filename string
	Data     []byte
}

// ExportFilename is the download name of a patient's timeline PDF.
func ExportFilename(patientID string) string {
	return "medical_timeline_" + patientID + ".pdf"
}
