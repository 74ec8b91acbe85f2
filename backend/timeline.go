/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package backend

import (
	"context"
	"mime"
	"strings"
)

// TimelineSummary fetches the patient's timeline with its AI overview.
func (c *Client) TimelineSummary(ctx context.Context, patientID string) (*TimelineSummary, error) {
	const op, fallback = "timeline_summary", "Failed to summarize timeline"

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, validationError(op, "Please enter Patient ID (Ingest or Analyze section)")
	}

	resp, e := c.postJSON(ctx, op, fallback, "/timeline-summary", map[string]string{
		"patient_id": patientID,
	})
	if e != nil {
		return nil, e
	}

	var summary TimelineSummary
	if e := decode(op, fallback, resp, &summary); e != nil {
		return nil, e
	}

	return &summary, nil
}

// Explain asks how the patient's records matching query changed over time.
func (c *Client) Explain(ctx context.Context, patientID, query string) (*Explanation, error) {
	const op, fallback = "explain", "Failed to run analysis"

	patientID = strings.TrimSpace(patientID)
	query = strings.TrimSpace(query)
	if patientID == "" || query == "" {
		return nil, validationError(op, "Please enter Patient ID and query")
	}

	resp, e := c.postJSON(ctx, op, fallback, "/explain", map[string]string{
		"patient_id": patientID,
		"query":      query,
	})
	if e != nil {
		return nil, e
	}

	var explanation Explanation
	if e := decode(op, fallback, resp, &explanation); e != nil {
		return nil, e
	}

	return &explanation, nil
}

// ExportPDF downloads the patient's timeline as a PDF document.
func (c *Client) ExportPDF(ctx context.Context, patientID string) (*PDFExport, error) {
	const op, fallback = "export_pdf", "Export failed"

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, validationError(op, "Please enter Patient ID")
	}

	resp, e := c.postJSON(ctx, op, fallback, "/export-pdf", map[string]string{
		"patient_id": patientID,
	})
	if e != nil {
		return nil, e
	}

	if !successStatus(resp.status) || isJSON(resp.header.Get("Content-Type")) {
		// Errors come back as JSON; a JSON success body is not a document.
		if e := decode(op, fallback, resp, nil); e != nil {
			return nil, e
		}
		return nil, transportError(op, fallback, errInvalidResponse, errNotADocument)
	}
	if len(resp.body) == 0 {
		return nil, transportError(op, fallback, errInvalidResponse, errNotADocument)
	}

	return &PDFExport{
		Filename: ExportFilename(patientID),
		Data:     resp.body,
	}, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
