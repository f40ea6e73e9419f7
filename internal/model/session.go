// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Session holds the identity claims of a logged-in author.
// The zero value is an anonymous session.
type Session struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	LoginName  string `json:"login_name"`
	PictureURL string `json:"pictureURL,omitempty"`
	IsLoggedIn bool   `json:"isLoggedIn"`
	IsAdmin    bool   `json:"isAdmin"`
	YearID     string `json:"yearId,omitempty"`
}

// NewSession builds the session issued after a successful login for the
// given year. An empty yearID falls back to the author's own year.
func NewSession(a *Author, yearID string) Session {
	if yearID == "" {
		yearID = a.YearID()
	}
	return Session{
		ID:         a.ID,
		Name:       a.Name,
		LoginName:  a.LoginName,
		PictureURL: a.PictureURL,
		IsLoggedIn: true,
		IsAdmin:    a.IsAdmin,
		YearID:     yearID,
	}
}

// Authenticated reports whether the session belongs to a logged-in author.
func (s Session) Authenticated() bool {
	return s.IsLoggedIn && s.ID != ""
}

// Admin reports whether the session belongs to a logged-in admin.
func (s Session) Admin() bool {
	return s.Authenticated() && s.IsAdmin
}
