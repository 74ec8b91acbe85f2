/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package view

import (
	"encoding/base64"
	"html/template"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Share is the view model of a shareable patient link.
type Share struct {
	PatientID string
	Link      string
	QRCode    template.URL
}

// ShareLink builds the public link of a patient timeline under origin.
func ShareLink(origin, patientID string) string {
	return strings.TrimRight(origin, "/") + "/patient/" + url.PathEscape(patientID)
}

// NewShare builds the share view with a QR code of the link.
func NewShare(origin, patientID string) (Share, error) {
	link := ShareLink(origin, patientID)

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return Share{}, err
	}

	return Share{
		PatientID: patientID,
		Link:      link,
		// PNG generated here, safe as an image source.
		QRCode: template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
	}, nil
}
