/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package backend

import (
	"context"
	"encoding/json"
	"strings"
)

// Credentials are the fields of the sign-in form.
type Credentials struct {
	Email    string
	Password string
}

// Registration are the fields of the sign-up form.
type Registration struct {
	Username string
	Email    string
	Password string
}

// Login signs in and returns the account with its backend cookies.
func (c *Client) Login(ctx context.Context, cr Credentials) (*Account, error) {
	const op, fallback = "login", "Login failed"

	email := strings.TrimSpace(cr.Email)
	if email == "" || cr.Password == "" {
		return nil, validationError(op, "Please enter your email and password")
	}

	resp, e := c.postJSON(ctx, op, fallback, "/login", map[string]string{
		"email":    email,
		"password": cr.Password,
	})
	if e != nil {
		return nil, e
	}

	return accountFrom(op, fallback, resp)
}

// Register creates an account and returns it with its backend cookies.
func (c *Client) Register(ctx context.Context, r Registration) (*Account, error) {
	const op, fallback = "register", "Registration failed"

	username := strings.TrimSpace(r.Username)
	email := strings.TrimSpace(r.Email)
	if username == "" || email == "" || r.Password == "" {
		return nil, validationError(op, "Please fill username, email, and password")
	}

	resp, e := c.postJSON(ctx, op, fallback, "/register", map[string]string{
		"username": username,
		"email":    email,
		"password": r.Password,
	})
	if e != nil {
		return nil, e
	}

	return accountFrom(op, fallback, resp)
}

func accountFrom(op, fallback string, resp *response) (*Account, error) {
	var acct Account
	if e := decode(op, fallback, resp, &acct); e != nil {
		return nil, e
	}

	acct.PatientID = strings.TrimSpace(acct.PatientID)
	if acct.PatientID == "" {
		return nil, transportError(op, fallback, errInvalidResponse, errMissingPatientID)
	}
	acct.Cookies = resp.cookies

	return &acct, nil
}

// Logout ends the backend session. Any 2xx answer without an error field
// counts as success, whatever the body.
func (c *Client) Logout(ctx context.Context) error {
	const op, fallback = "logout", "Logout failed"

	resp, e := c.postJSON(ctx, op, fallback, "/logout", nil)
	if e != nil {
		return e
	}

	var eb errorBody
	_ = json.Unmarshal(resp.body, &eb)
	if !successStatus(resp.status) || strings.TrimSpace(eb.Error) != "" {
		return serverError(op, fallback, resp.status, strings.TrimSpace(eb.Error))
	}

	return nil
}
