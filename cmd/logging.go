/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "github.com/humaidq/medtimeline/logging"

var appLogger = logging.Logger(logging.SourceApp)
var dictationLogger = logging.Logger(logging.SourceDictation)
var requestStdLogger = logging.StdLogger(logging.SourceWebRequest)
