/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package backend

import (
	"context"
	"time"
)

// Ingest stores a health event. The draft is normalized before sending; an
// absent timestamp is sent as null so the server assigns the current time.
func (c *Client) Ingest(ctx context.Context, draft EventDraft) (*IngestResult, error) {
	const op, fallback = "ingest", "Failed to add event"

	d := draft.Normalize()
	if d.PatientID == "" || d.EventType == "" || d.Content == "" {
		return nil, validationError(op, "Please fill Patient ID, Event Type, and Content")
	}

	payload := ingestRequest{
		PatientID:   d.PatientID,
		PatientName: d.PatientName,
		DoctorName:  d.DoctorName,
		EventType:   d.EventType,
		Content:     d.Content,
	}
	if d.Timestamp != nil {
		ts := d.Timestamp.Format(time.RFC3339)
		payload.Timestamp = &ts
	}

	resp, e := c.postJSON(ctx, op, fallback, "/ingest", payload)
	if e != nil {
		return nil, e
	}

	var result IngestResult
	if e := decode(op, fallback, resp, &result); e != nil {
		return nil, e
	}
	if result.EventID == "" {
		return nil, transportError(op, fallback, errInvalidResponse, errMissingEventID)
	}

	return &result, nil
}
