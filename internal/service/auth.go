// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/olegiv/urfield-go/internal/auth"
	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/richtext"
)

// SignupMessage is returned after a successful signup.
const SignupMessage = "Signup successful! Please log in."

// SessionStore keeps the session of the current request.
type SessionStore interface {
	Load(ctx context.Context) model.Session
	// Save renews the session token and stores sess.
	Save(ctx context.Context, sess model.Session) error
	Destroy(ctx context.Context) error
}

// PasswordHasher hashes and verifies author passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) (bool, error)
	NeedsRehash(hash string) bool
}

// Upload is a file part received with a form.
type Upload struct {
	Reader   io.Reader
	Filename string
	Size     int64
}

// LoginInput holds the login form. YearID is optional and scopes the
// lookup to the authors of that year.
type LoginInput struct {
	LoginName string
	Password  string
	YearID    string
}

// SignupInput holds the signup form.
type SignupInput struct {
	Name      string
	LoginName string
	Password  string
	YearID    string
	Email     string
	Role      string
	Institute string
	Bio       string
	Picture   *Upload
}

// SignupResult is returned by Signup.
type SignupResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// AuthService implements login, signup, logout and the current session lookup.
type AuthService struct {
	repo      cms.Repository
	uploader  cms.Uploader
	sessions  SessionStore
	hasher    PasswordHasher
	sanitizer *richtext.Sanitizer
	logger    *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo cms.Repository, uploader cms.Uploader, sessions SessionStore, hasher PasswordHasher, logger *slog.Logger) *AuthService {
	return &AuthService{
		repo:      repo,
		uploader:  uploader,
		sessions:  sessions,
		hasher:    hasher,
		sanitizer: richtext.NewSanitizer(),
		logger:    logger,
	}
}

// Login checks the credentials, opens a session for the author and returns
// the author's public profile.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*model.AuthorProfile, error) {
	loginName := strings.TrimSpace(in.LoginName)
	yearID := strings.TrimSpace(in.YearID)
	if loginName == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	author, err := s.repo.AuthorByLogin(ctx, loginName, yearID)
	if errors.Is(err, cms.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapError(KindInternal, "", fmt.Errorf("looking up author: %w", err))
	}

	ok, err := s.hasher.Compare(in.Password, author.PasswordHash)
	if err != nil {
		s.logger.Warn("password check failed", "author_id", author.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !author.Verified {
		return nil, ErrNotVerified
	}

	if err := s.sessions.Save(ctx, model.NewSession(author, yearID)); err != nil {
		return nil, wrapError(KindInternal, "", fmt.Errorf("saving session: %w", err))
	}

	s.rehash(ctx, author, in.Password)

	profile := author.Profile()
	return &profile, nil
}

// rehash upgrades a hash created with a lower cost. Failures are logged
// and never fail the login.
func (s *AuthService) rehash(ctx context.Context, author *model.Author, password string) {
	if !s.hasher.NeedsRehash(author.PasswordHash) {
		return
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("failed to rehash password", "author_id", author.ID, "error", err)
		return
	}

	tx := cms.NewTransaction().Patch(author.ID, map[string]any{"password": hash})
	if _, err := s.repo.Commit(ctx, tx); err != nil {
		s.logger.Warn("failed to store rehashed password", "author_id", author.ID, "error", err)
	}
}

// Signup registers an unverified author. The author cannot log in until an
// admin verifies the account.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	name := s.sanitizer.Text(in.Name)
	loginName := strings.TrimSpace(in.LoginName)
	yearID := strings.TrimSpace(in.YearID)
	if name == "" || loginName == "" || in.Password == "" || yearID == "" {
		return nil, ErrMissingFields
	}
	if len(in.Password) > auth.MaxPasswordLength {
		return nil, newError(KindInvalidRequest, auth.ErrPasswordTooLong.Error())
	}

	email := strings.TrimSpace(in.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, newError(KindInvalidRequest, "Invalid email address")
		}
	}

	taken, err := s.repo.LoginNameTaken(ctx, loginName)
	if err != nil {
		return nil, wrapError(KindInternal, "", fmt.Errorf("checking login name: %w", err))
	}
	if taken {
		return nil, ErrDuplicateLogin
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, wrapError(KindInternal, "", err)
	}

	yearRef := model.Ref(yearID)
	author := &model.Author{
		Type:         model.TypeAuthor,
		Name:         name,
		LoginName:    loginName,
		PasswordHash: hash,
		Email:        email,
		Role:         s.sanitizer.Text(in.Role),
		Institute:    s.sanitizer.Text(in.Institute),
		Bio:          s.sanitizer.Text(in.Bio),
		Verified:     false,
		Year:         &yearRef,
	}

	if in.Picture != nil {
		asset, err := s.uploader.Upload(ctx, model.AssetImage, in.Picture.Reader, in.Picture.Filename)
		if err != nil {
			s.logger.Error("failed to upload author picture", "login_name", loginName, "error", err)
			return nil, wrapError(KindUploadFailed, "", err)
		}
		author.Picture = model.NewImageRef(asset.ID)
	}

	ids, err := s.repo.Commit(ctx, cms.NewTransaction().Create(author))
	if err != nil {
		return nil, wrapError(KindInternal, "", fmt.Errorf("creating author: %w", err))
	}

	s.logger.Info("author signed up", "author_id", ids[0], "login_name", loginName, "year", yearID)

	return &SignupResult{ID: ids[0], Message: SignupMessage}, nil
}

// Logout destroys the current session. It succeeds without a session.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.sessions.Destroy(ctx); err != nil {
		return wrapError(KindInternal, "", fmt.Errorf("destroying session: %w", err))
	}
	return nil
}

// CurrentSession returns the logged-in session. When yearID is given and
// differs from the year the session was opened for, the session is
// destroyed and Unauthorized is returned.
func (s *AuthService) CurrentSession(ctx context.Context, yearID string) (model.Session, error) {
	sess := s.sessions.Load(ctx)
	if !sess.Authenticated() {
		return model.Session{}, newError(KindUnauthorized, "No user logged in")
	}

	yearID = strings.TrimSpace(yearID)
	if yearID != "" && sess.YearID != yearID {
		if err := s.sessions.Destroy(ctx); err != nil {
			s.logger.Warn("failed to destroy session after year change", "author_id", sess.ID, "error", err)
		}
		return model.Session{}, newError(KindUnauthorized, "No user logged in")
	}

	return sess, nil
}
