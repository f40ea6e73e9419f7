// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/urfield-go/internal/middleware"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/service"
)

// AuthHandler handles login, signup, logout and the current session.
type AuthHandler struct {
	auth       *service.AuthService
	events     *service.EventService
	protection *middleware.LoginProtection
	maxUpload  int64
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. protection may be nil to
// disable account lockouts.
func NewAuthHandler(auth *service.AuthService, events *service.EventService, protection *middleware.LoginProtection, maxUpload int64, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		events:     events,
		protection: protection,
		maxUpload:  maxUpload,
		logger:     logger,
	}
}

// loginRequest accepts both spellings of the login name used by clients.
type loginRequest struct {
	LoginName      string `json:"loginName"`
	LoginNameSnake string `json:"login_name"`
	Password       string `json:"password"`
	YearID         string `json:"yearId"`
}

func (l loginRequest) loginName() string {
	if l.LoginName != "" {
		return l.LoginName
	}
	return l.LoginNameSnake
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	loginName := req.loginName()
	ctx := r.Context()
	ip := middleware.ClientIP(r)

	if h.protection != nil && loginName != "" {
		if locked, remaining := h.protection.IsAccountLocked(ctx, loginName); locked {
			h.logAuth(r, model.EventLevelWarning, "Login attempt on locked account", "", map[string]any{
				"login_name": loginName,
				"remaining":  remaining.Round(time.Second).String(),
			})
			middleware.WriteError(w, http.StatusTooManyRequests, "account_locked",
				fmt.Sprintf("Too many failed login attempts. Try again in %s.", formatWait(remaining)))
			return
		}
	}

	profile, err := h.auth.Login(ctx, service.LoginInput{
		LoginName: loginName,
		Password:  req.Password,
		YearID:    req.YearID,
	})
	if err != nil {
		if kindIs(err, service.KindInvalidCredentials) || kindIs(err, service.KindNotFound) {
			h.recordFailure(r, loginName, ip)
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	if h.protection != nil {
		h.protection.RecordSuccessfulLogin(ctx, loginName)
	}
	h.logAuth(r, model.EventLevelInfo, "Author logged in", profile.ID, map[string]any{
		"login_name": profile.LoginName,
		"year_id":    req.YearID,
	})

	writeJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) recordFailure(r *http.Request, loginName, ip string) {
	meta := map[string]any{"login_name": loginName}
	if h.protection != nil && loginName != "" {
		locked, duration := h.protection.RecordFailedAttempt(r.Context(), loginName)
		if locked {
			meta["locked_for"] = duration.String()
			h.logger.Warn("account locked after failed login attempts",
				"login_name", loginName,
				"ip", ip,
				"duration", duration,
			)
		} else {
			meta["remaining_attempts"] = h.protection.GetRemainingAttempts(r.Context(), loginName)
		}
	}
	h.logAuth(r, model.EventLevelWarning, "Failed login attempt", "", meta)
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	form, err := parseMultipart(w, r, h.maxUpload)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer form.Close()

	picture, err := form.upload("picture")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.Signup(r.Context(), service.SignupInput{
		Name:      form.value("name"),
		LoginName: form.value("loginName", "login_name"),
		Password:  r.FormValue("password"),
		YearID:    form.value("yearId"),
		Email:     form.value("email"),
		Role:      form.value("role"),
		Institute: form.value("institute"),
		Bio:       form.value("bio"),
		Picture:   picture,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logAuth(r, model.EventLevelInfo, "Author signed up", result.ID, map[string]any{
		"login_name": form.value("loginName", "login_name"),
		"year_id":    form.value("yearId"),
	})

	writeJSONSuccess(w, http.StatusCreated, map[string]any{
		"id":      result.ID,
		"message": result.Message,
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.auth.CurrentSession(r.Context(), "")
	if err := h.auth.Logout(r.Context()); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if sess.Authenticated() {
		h.logAuth(r, model.EventLevelInfo, "Author logged out", sess.ID, nil)
	}
	writeJSONSuccess(w, http.StatusOK, map[string]any{"message": "Successfully logged out"})
}

// User handles GET /auth/user.
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.CurrentSession(r.Context(), r.URL.Query().Get("yearId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *AuthHandler) logAuth(r *http.Request, level, message, authorID string, extra map[string]any) {
	if h.events == nil {
		return
	}
	_ = h.events.LogAuthEvent(r.Context(), level, message, authorID,
		middleware.ClientIP(r), middleware.RequestURL(r),
		service.ClientMetadata(r.UserAgent(), extra))
}

// formatWait renders a lockout duration for humans.
func formatWait(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
