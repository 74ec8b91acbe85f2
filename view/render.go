/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package view

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/humaidq/medtimeline/uistate"
)

//go:embed fragments/*.html
var fragmentFS embed.FS

var fragments = template.Must(template.ParseFS(fragmentFS, "fragments/*.html"))

func render(kind, name string, data any) (uistate.Output, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return uistate.Output{}, err
	}
	return uistate.Output{Kind: kind, HTML: buf.String()}, nil
}

// RenderTimeline renders a timeline view into the output surface.
func RenderTimeline(t Timeline) (uistate.Output, error) {
	return render(KindTimeline, "timeline", t)
}

// RenderAnalysis renders an analysis view into the output surface.
func RenderAnalysis(a Analysis) (uistate.Output, error) {
	return render(KindAnalysis, "analysis", a)
}

// RenderUpload renders an upload confirmation into the output surface.
func RenderUpload(u Upload) (uistate.Output, error) {
	return render(KindUpload, "upload", u)
}

// RenderError renders a single error message into the output surface.
func RenderError(message string) uistate.Output {
	out, err := render(KindError, "error", message)
	if err != nil {
		return uistate.Output{Kind: KindError, HTML: `<p class="error">❌ ` + template.HTMLEscapeString(message) + `</p>`}
	}
	return out
}
