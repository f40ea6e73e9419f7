// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session keeps the logged-in author's claims in a server-side
// session identified by a cookie.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/urfield-go/internal/model"
)

// Cookie settings.
const (
	CookieName       = "urfieldlab-session"
	SecureCookieName = "__Host-" + CookieName
	Lifetime         = 7 * 24 * time.Hour
)

// Session data keys.
const (
	keyAuthorID   = "author_id"
	keyName       = "name"
	keyLoginName  = "login_name"
	keyPictureURL = "picture_url"
	keyIsAdmin    = "is_admin"
	keyYearID     = "year_id"
)

// New creates a new session manager configured with SQLite store.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	sm.Store = sqlite3store.New(db)

	sm.Lifetime = Lifetime
	sm.Cookie.Name = CookieName
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	if !isDev {
		sm.Cookie.Name = SecureCookieName
	}

	return sm
}

// Store reads and writes model.Session values in the request session.
// The request must pass through the manager's LoadAndSave middleware.
type Store struct {
	sm *scs.SessionManager
}

// NewStore wraps a session manager.
func NewStore(sm *scs.SessionManager) *Store {
	return &Store{sm: sm}
}

// Load returns the current session, the zero Session when anonymous.
func (s *Store) Load(ctx context.Context) model.Session {
	id := s.sm.GetString(ctx, keyAuthorID)
	if id == "" {
		return model.Session{}
	}
	return model.Session{
		ID:         id,
		Name:       s.sm.GetString(ctx, keyName),
		LoginName:  s.sm.GetString(ctx, keyLoginName),
		PictureURL: s.sm.GetString(ctx, keyPictureURL),
		IsLoggedIn: true,
		IsAdmin:    s.sm.GetBool(ctx, keyIsAdmin),
		YearID:     s.sm.GetString(ctx, keyYearID),
	}
}

// Save renews the session token and stores sess.
func (s *Store) Save(ctx context.Context, sess model.Session) error {
	if err := s.sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}

	s.sm.Put(ctx, keyAuthorID, sess.ID)
	s.sm.Put(ctx, keyName, sess.Name)
	s.sm.Put(ctx, keyLoginName, sess.LoginName)
	s.sm.Put(ctx, keyPictureURL, sess.PictureURL)
	s.sm.Put(ctx, keyIsAdmin, sess.IsAdmin)
	s.sm.Put(ctx, keyYearID, sess.YearID)
	return nil
}

// Destroy removes the session. It succeeds when there is none.
func (s *Store) Destroy(ctx context.Context) error {
	if err := s.sm.Destroy(ctx); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}
