/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/medtimeline/timeline"
)

// UserContextInjector loads the page session and trigger controls into
// templates.
func UserContextInjector() flamego.Handler {
	return func(s session.Session, ctrl *timeline.Controller, data template.Data) {
		st := loadState(s)

		data["IsAuthenticated"] = st.LoggedIn()
		data["Welcome"] = st.Welcome()
		if st.LoggedIn() {
			data["Username"] = st.User.Username
			data["PatientID"] = st.User.PatientID
		}

		data["Controls"] = ctrl.Controls(s.ID())
	}
}
