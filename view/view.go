/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package view maps backend results to view models and renders them as
// escaped HTML fragments for the output surface.
package view

import (
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/humaidq/medtimeline/backend"
	"github.com/humaidq/medtimeline/uistate"
)

// FallbackSummary replaces an empty AI overview or explanation.
const FallbackSummary = "The records show limited explicit textual differences over time."

// Output kinds stored with the output surface.
const (
	KindTimeline = "timeline"
	KindAnalysis = "analysis"
	KindUpload   = "upload"
	KindError    = "error"
)

// Data quality color classes.
const (
	QualityRich     = "quality-rich"
	QualityModerate = "quality-moderate"
	QualityPoor     = "quality-poor"
)

const (
	localTimeLayout = "Jan 2, 2006 3:04 PM"
	localDateLayout = "Jan 2, 2006"
)

// Layouts accepted for backend timestamps. Zone-less values are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// QualityClass picks the color class of a data quality label.
func QualityClass(label string) string {
	switch label {
	case "Rich":
		return QualityRich
	case "Moderate":
		return QualityModerate
	default:
		return QualityPoor
	}
}

// SummaryText returns s, or the fallback text when s is blank.
func SummaryText(s string) string {
	if strings.TrimSpace(s) == "" {
		return FallbackSummary
	}
	return s
}

// ParseTimestamp parses a backend timestamp.
func ParseTimestamp(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatLocal renders a backend timestamp in loc. Empty input is "N/A" and
// unparseable input is returned as is.
func FormatLocal(ts string, loc *time.Location) string {
	if strings.TrimSpace(ts) == "" {
		return "N/A"
	}
	t, ok := ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.In(location(loc)).Format(localTimeLayout)
}

// FormatShift renders a semantic shift score.
func FormatShift(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// TimelineRow is one table row of the timeline view.
type TimelineRow struct {
	Time      string
	EventType string
	Content   string
}

// Timeline is the view model of a timeline summary.
type Timeline struct {
	Rows               []TimelineRow
	Overview           string
	SemanticShift      string
	QualityLabel       string
	QualityDescription string
	QualityClass       string
	Chart              template.HTML
}

// NewTimeline maps a timeline summary to its view model. The activity chart
// is left empty; see ActivityChart.
func NewTimeline(s *backend.TimelineSummary, loc *time.Location) Timeline {
	rows := make([]TimelineRow, 0, len(s.Timeline))
	for _, ev := range s.Timeline {
		rows = append(rows, TimelineRow{
			Time:      FormatLocal(ev.Timestamp, loc),
			EventType: ev.EventType,
			Content:   ev.Content,
		})
	}

	return Timeline{
		Rows:               rows,
		Overview:           SummaryText(s.OverallSummary),
		SemanticShift:      FormatShift(s.SemanticShift),
		QualityLabel:       s.DataQuality.Label,
		QualityDescription: s.DataQuality.Description,
		QualityClass:       QualityClass(s.DataQuality.Label),
	}
}

// Analysis is the view model of an explanation.
type Analysis struct {
	ChangeLevel   string
	SemanticShift string
	From          string
	To            string
	Explanation   string
}

// NewAnalysis maps an explanation to its view model.
func NewAnalysis(e *backend.Explanation, loc *time.Location) Analysis {
	return Analysis{
		ChangeLevel:   e.Difference.ChangeLevel,
		SemanticShift: FormatShift(e.Difference.SemanticShift),
		From:          FormatLocal(e.Difference.TimeRange.From, loc),
		To:            FormatLocal(e.Difference.TimeRange.To, loc),
		Explanation:   SummaryText(e.Explanation),
	}
}

// Upload is the view model of an uploaded document.
type Upload struct {
	Filename      string
	ExtractedText string
	Note          string
}

// NewUpload maps an upload result to its view model.
func NewUpload(r *backend.UploadResult) Upload {
	return Upload{
		Filename:      r.Filename,
		ExtractedText: r.ExtractedText,
		Note:          r.Note,
	}
}

// StatsFrom derives the event counters from a timeline summary.
func StatsFrom(s *backend.TimelineSummary, loc *time.Location) uistate.Stats {
	st := uistate.Stats{Events: len(s.Timeline)}
	if len(s.Timeline) == 0 {
		return st
	}

	last := s.Timeline[len(s.Timeline)-1].Timestamp
	if t, ok := ParseTimestamp(last); ok {
		st.LastUpdate = t.In(location(loc)).Format(localDateLayout)
	}

	return st
}
