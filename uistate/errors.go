/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package uistate

import "errors"

var (
	// ErrEmptyPatientID is returned when a session would be created without
	// a patient id.
	ErrEmptyPatientID = errors.New("session patient id is empty")
)
