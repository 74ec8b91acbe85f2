/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"os"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/template"
)

const (
	defaultSiteTitle      = "Medical Timeline"
	publicSiteTitleEnvVar = "PUBLIC_SITE_TITLE"
)

func setPublicSiteTitle(data template.Data) {
	title := strings.TrimSpace(os.Getenv(publicSiteTitleEnvVar))
	if title == "" {
		title = defaultSiteTitle
	}

	data["PageTitle"] = title
}

// SiteTitleInjector sets the page title of every rendered page.
func SiteTitleInjector() flamego.Handler {
	return func(data template.Data) {
		setPublicSiteTitle(data)
	}
}
