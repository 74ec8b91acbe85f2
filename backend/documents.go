/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadDocument sends a document to the patient record as multipart form
// data with the fields file, patient_id and, when present, notes.
func (c *Client) UploadDocument(ctx context.Context, doc Document) (*UploadResult, error) {
	const op, fallback = "upload", "Upload failed"

	if doc.Filename == "" || len(doc.Data) == 0 {
		return nil, validationError(op, "Please select a file first")
	}
	patientID := strings.TrimSpace(doc.PatientID)
	if patientID == "" {
		return nil, validationError(op, "Please enter a Patient ID")
	}

	body, contentType, err := encodeDocument(doc, patientID)
	if err != nil {
		return nil, transportError(op, fallback, errUnreachable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-document", body)
	if err != nil {
		return nil, transportError(op, fallback, errUnreachable, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, e := c.send(op, fallback, req)
	if e != nil {
		return nil, e
	}

	var result UploadResult
	if e := decode(op, fallback, resp, &result); e != nil {
		return nil, e
	}
	if result.Filename == "" {
		result.Filename = doc.Filename
	}

	return &result, nil
}

func encodeDocument(doc Document, patientID string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(doc.Filename)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("patient_id", patientID); err != nil {
		return nil, "", err
	}
	if notes := strings.TrimSpace(doc.Notes); notes != "" {
		if err := w.WriteField("notes", notes); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}
