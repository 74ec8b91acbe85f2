/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/template"
)

const (
	themeCookieName = "theme"
	themeLight      = "light"
	themeDark       = "dark"
	themeCookieAge  = 365 * 24 * time.Hour
)

func themeFrom(r *http.Request) string {
	cookie, err := r.Cookie(themeCookieName)
	if err != nil || cookie.Value != themeDark {
		return themeLight
	}
	return themeDark
}

// ThemeInjector exposes the persisted theme to templates.
func ThemeInjector() flamego.Handler {
	return func(c flamego.Context, data template.Data) {
		theme := themeFrom(c.Request().Request)
		data["Theme"] = theme
		if theme == themeDark {
			data["ThemeIcon"] = "☀️"
		} else {
			data["ThemeIcon"] = "🌙"
		}
	}
}

// ToggleTheme flips between the light and dark theme.
func ToggleTheme(c flamego.Context) {
	next := themeDark
	if themeFrom(c.Request().Request) == themeDark {
		next = themeLight
	}

	http.SetCookie(c.ResponseWriter(), &http.Cookie{
		Name:     themeCookieName,
		Value:    next,
		Path:     "/",
		MaxAge:   int(themeCookieAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	c.Redirect("/", http.StatusSeeOther)
}
