/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/base64"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	flamegotemplate "github.com/flamego/template"

	"github.com/humaidq/medtimeline/timeline"
	"github.com/humaidq/medtimeline/uistate"
)

// Config holds the settings handlers need from the command line.
type Config struct {
	// PublicURL is the origin used in share links. The request origin is
	// used when empty.
	PublicURL string
}

// Home renders the workspace page.
func Home(c flamego.Context, s session.Session, t flamegotemplate.Template, data flamegotemplate.Data) {
	st := loadState(s)

	data["Fields"] = st.Fields
	data["Stats"] = st.Stats
	data["HasStats"] = st.Stats.Events > 0
	// Rendered by the view package with every value escaped.
	data["Output"] = template.HTML(st.Output.HTML)

	if f := st.SelectedFile; f != nil {
		data["SelectedFile"] = f.Name
		if f.IsImage() {
			preview := "data:" + f.ContentType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
			data["Preview"] = &preview
		}
	}

	t.HTML(http.StatusOK, "index")
}

// workspaceAction runs one workspace action with the submitted fields. A
// rejected action leaves the stored state as it was.
func workspaceAction(c flamego.Context, s session.Session, name string, action func(st *uistate.State) timeline.Outcome) (timeline.Outcome, bool) {
	if err := parseForm(c); err != nil {
		logger.Error("Error parsing workspace form", "action", name, "error", err)
		SetErrorFlash(s, "Invalid form submission")
		c.Redirect("/", http.StatusSeeOther)
		return timeline.Outcome{}, false
	}

	st := loadState(s)
	base := *st
	st.FieldsSubmitted(workspaceFields(c))

	out := action(st)
	if !out.Started {
		logGateRejected(c, s, name)
		c.Redirect("/", http.StatusSeeOther)
		return out, false
	}

	commitState(s, &base, st)
	setNoticeFlash(s, out.Notice)

	return out, true
}

// Ingest adds a health event.
func Ingest(c flamego.Context, s session.Session, ctrl *timeline.Controller) {
	_, ok := workspaceAction(c, s, "ingest", func(st *uistate.State) timeline.Outcome {
		return ctrl.Ingest(actionContext(c), s.ID(), st)
	})
	if ok {
		c.Redirect("/", http.StatusSeeOther)
	}
}

// SelectDocument stores the chosen document until it is uploaded.
func SelectDocument(c flamego.Context, s session.Session, ctrl *timeline.Controller) {
	_, ok := workspaceAction(c, s, "select_document", func(st *uistate.State) timeline.Outcome {
		f, err := selectedFile(c)
		if err != nil {
			if errors.Is(err, errFileTooLarge) {
				SetErrorFlash(s, "File is too large")
				return timeline.Outcome{Started: true}
			}
			return ctrl.SelectFile(st, uistate.SelectedFile{})
		}
		return ctrl.SelectFile(st, f)
	})
	if ok {
		c.Redirect("/", http.StatusSeeOther)
	}
}

// UploadDocument sends the selected document. A file chosen in the same
// submission replaces the stored one first.
func UploadDocument(c flamego.Context, s session.Session, ctrl *timeline.Controller) {
	_, ok := workspaceAction(c, s, "upload", func(st *uistate.State) timeline.Outcome {
		if f, err := selectedFile(c); err == nil {
			ctrl.SelectFile(st, f)
		}
		return ctrl.Upload(actionContext(c), st)
	})
	if ok {
		c.Redirect("/#output", http.StatusSeeOther)
	}
}

// Summary loads the timeline summary into the output surface.
func Summary(c flamego.Context, s session.Session, ctrl *timeline.Controller) {
	_, ok := workspaceAction(c, s, "summarize", func(st *uistate.State) timeline.Outcome {
		return ctrl.Summarize(actionContext(c), s.ID(), st)
	})
	if ok {
		c.Redirect("/#output", http.StatusSeeOther)
	}
}

// Analyze runs an analysis query into the output surface.
func Analyze(c flamego.Context, s session.Session, ctrl *timeline.Controller) {
	_, ok := workspaceAction(c, s, "analyze", func(st *uistate.State) timeline.Outcome {
		return ctrl.Analyze(actionContext(c), s.ID(), st)
	})
	if ok {
		c.Redirect("/#output", http.StatusSeeOther)
	}
}

// Export downloads the timeline PDF as an attachment.
func Export(c flamego.Context, s session.Session, ctrl *timeline.Controller) {
	out, ok := workspaceAction(c, s, "export", func(st *uistate.State) timeline.Outcome {
		return ctrl.Export(actionContext(c), st)
	})
	if !ok {
		return
	}
	if out.Download == nil {
		c.Redirect("/", http.StatusSeeOther)
		return
	}

	w := c.ResponseWriter()
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": out.Download.Filename,
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Download.Data)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(out.Download.Data); err != nil {
		logger.Error("Failed to write PDF export", "error", err)
	}
}

// Share renders the shareable link of the active patient.
func Share(c flamego.Context, s session.Session, ctrl *timeline.Controller, cfg Config, t flamegotemplate.Template, data flamegotemplate.Data) {
	share, err := ctrl.ShareLink(origin(c, cfg), loadState(s))
	if err != nil {
		if !errors.Is(err, timeline.ErrNoPatientID) {
			logger.Error("Failed to build share link", "error", err)
		}
		SetErrorFlash(s, timeline.Message(err))
		c.Redirect("/", http.StatusSeeOther)
		return
	}

	data["Share"] = share
	t.HTML(http.StatusOK, "share")
}

// PatientTimeline renders the timeline behind a share link.
func PatientTimeline(c flamego.Context, s session.Session, ctrl *timeline.Controller, t flamegotemplate.Template, data flamegotemplate.Data) {
	patientID := strings.TrimSpace(c.Param("id"))
	out := ctrl.PatientTimeline(actionContext(c), loadState(s), patientID)

	data["SharedPatientID"] = patientID
	// Rendered by the view package with every value escaped.
	data["Output"] = template.HTML(out.HTML)
	t.HTML(http.StatusOK, "patient")
}

func origin(c flamego.Context, cfg Config) string {
	if cfg.PublicURL != "" {
		return cfg.PublicURL
	}

	r := c.Request().Request
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}
