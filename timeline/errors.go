/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package timeline

import "errors"

var (
	ErrNoPatientID      = errors.New("no patient id entered")
	ErrInvalidEventTime = errors.New("invalid event time")
	ErrBackendRequired  = errors.New("backend is required")
)
