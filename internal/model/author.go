// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Author is a registered contributor of one event year.
// PasswordHash is stored under the "password" field of the CMS document.
type Author struct {
	ID           string     `json:"_id,omitempty"`
	Type         string     `json:"_type"`
	Name         string     `json:"name"`
	LoginName    string     `json:"login_name"`
	PasswordHash string     `json:"password"`
	Email        string     `json:"email,omitempty"`
	Role         string     `json:"role,omitempty"`
	Institute    string     `json:"institute,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	Picture      *ImageRef  `json:"picture,omitempty"`
	Verified     bool       `json:"verified"`
	IsAdmin      bool       `json:"isAdmin"`
	Year         *Reference `json:"year,omitempty"`

	// PictureURL is resolved from the picture asset by the repository on
	// read. It is not part of the stored document.
	PictureURL string `json:"-"`
}

// DocumentID implements Document.
func (a *Author) DocumentID() string { return a.ID }

// DocumentType implements Document.
func (a *Author) DocumentType() string { return TypeAuthor }

// YearID returns the id of the year the author belongs to.
func (a *Author) YearID() string {
	if a.Year == nil {
		return ""
	}
	return a.Year.Ref
}

// AuthorProfile is the public projection of an Author. It never carries
// the password hash.
type AuthorProfile struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	LoginName  string `json:"login_name"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	Institute  string `json:"institute,omitempty"`
	Bio        string `json:"bio,omitempty"`
	PictureURL string `json:"pictureURL,omitempty"`
	Verified   bool   `json:"verified"`
	IsAdmin    bool   `json:"isAdmin"`
	YearID     string `json:"yearId,omitempty"`
}

// Profile returns the public projection of the author.
func (a *Author) Profile() AuthorProfile {
	return AuthorProfile{
		ID:         a.ID,
		Name:       a.Name,
		LoginName:  a.LoginName,
		Email:      a.Email,
		Role:       a.Role,
		Institute:  a.Institute,
		Bio:        a.Bio,
		PictureURL: a.PictureURL,
		Verified:   a.Verified,
		IsAdmin:    a.IsAdmin,
		YearID:     a.YearID(),
	}
}
