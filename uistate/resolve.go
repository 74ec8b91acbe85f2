/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package uistate

import "strings"

// ResolvePatientID picks the active patient id. The ingest field wins over
// the analysis field; ok is false when both are blank.
func ResolvePatientID(ingest, analysis string) (id string, ok bool) {
	if id = strings.TrimSpace(ingest); id != "" {
		return id, true
	}
	if id = strings.TrimSpace(analysis); id != "" {
		return id, true
	}
	return "", false
}
