/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"

	"github.com/flamego/flamego"
	"github.com/flamego/session"

	"github.com/humaidq/medtimeline/backend"
	"github.com/humaidq/medtimeline/timeline"
)

// Login handles the sign-in form.
func Login(c flamego.Context, s session.Session, ctrl *timeline.Controller) {
	if err := parseForm(c); err != nil {
		logger.Error("Error parsing login form", "error", err)
		SetErrorFlash(s, "Invalid form submission")
		c.Redirect("/", http.StatusSeeOther)
		return
	}

	st := loadState(s)
	base := *st
	out := ctrl.Login(actionContext(c), st, backend.Credentials{
		Email:    formValue(c, "email"),
		Password: formValue(c, "password"),
	})
	if st.LoggedIn() {
		commitState(s, &base, st)
	}
	signedIn(c, s, st.LoggedIn(), out)
}

// Register handles the create-account form.
func Register(c flamego.Context, s session.Session, ctrl *timeline.Controller) {
	if err := parseForm(c); err != nil {
		logger.Error("Error parsing registration form", "error", err)
		SetErrorFlash(s, "Invalid form submission")
		c.Redirect("/", http.StatusSeeOther)
		return
	}

	st := loadState(s)
	base := *st
	out := ctrl.Register(actionContext(c), st, backend.Registration{
		Username: formValue(c, "username"),
		Email:    formValue(c, "email"),
		Password: formValue(c, "password"),
	})
	if st.LoggedIn() {
		commitState(s, &base, st)
	}
	signedIn(c, s, st.LoggedIn(), out)
}

func signedIn(c flamego.Context, s session.Session, ok bool, out timeline.Outcome) {
	if ok {
		if err := s.RegenerateID(c.ResponseWriter(), c.Request().Request); err != nil {
			logger.Warn("Failed to regenerate session id", "error", err)
		}
	}

	setNoticeFlash(s, out.Notice)
	c.Redirect("/", http.StatusSeeOther)
}

// Logout ends the page session.
func Logout(c flamego.Context, s session.Session, ctrl *timeline.Controller) {
	st := loadState(s)
	base := *st
	out := ctrl.Logout(actionContext(c), st)
	commitState(s, &base, st)

	setNoticeFlash(s, out.Notice)
	c.Redirect("/", http.StatusSeeOther)
}
