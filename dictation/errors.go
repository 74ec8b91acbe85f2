/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package dictation

import "errors"

var (
	ErrUnsupported      = errors.New("voice recognition not supported")
	ErrAlreadyRecording = errors.New("already recording")
	ErrCommandRequired  = errors.New("recognizer command is required")
)
