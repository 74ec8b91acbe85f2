/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/flamego/flamego"

	"github.com/humaidq/medtimeline/uistate"
)

// maxUploadSize bounds a selected document and the workspace form around it.
const maxUploadSize = 20 << 20

func parseForm(c flamego.Context) error {
	r := c.Request().Request

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(c.ResponseWriter(), r.Body, maxUploadSize+1<<20)
		return r.ParseMultipartForm(maxUploadSize)
	}

	return r.ParseForm()
}

func formValue(c flamego.Context, key string) string {
	return c.Request().Form.Get(key)
}

func workspaceFields(c flamego.Context) uistate.Fields {
	return uistate.Fields{
		IngestPatientID:   strings.TrimSpace(formValue(c, "ingest_patient_id")),
		PatientName:       formValue(c, "patient_name"),
		DoctorName:        formValue(c, "doctor_name"),
		EventType:         formValue(c, "event_type"),
		Content:           formValue(c, "content"),
		EventTime:         formValue(c, "event_time"),
		DocumentNotes:     formValue(c, "document_notes"),
		AnalysisPatientID: strings.TrimSpace(formValue(c, "analysis_patient_id")),
		Query:             formValue(c, "query"),
	}
}

// selectedFile reads the document part of the workspace form.
func selectedFile(c flamego.Context) (uistate.SelectedFile, error) {
	r := c.Request().Request
	if r.MultipartForm == nil {
		return uistate.SelectedFile{}, errNoFileSelected
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return uistate.SelectedFile{}, fmt.Errorf("%w: %w", errNoFileSelected, err)
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		return uistate.SelectedFile{}, errFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return uistate.SelectedFile{}, err
	}
	if len(data) > maxUploadSize {
		return uistate.SelectedFile{}, errFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return uistate.SelectedFile{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
