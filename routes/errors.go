/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import "errors"

var (
	errNoFileSelected = errors.New("no file selected")
	errFileTooLarge   = errors.New("file too large")
)
