// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/olegiv/urfield-go/internal/auth"
	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
)

// Default development content.
const (
	DefaultAdminLogin    = "admin"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
	DefaultWorkingGroup  = "wg-general"
)

// DefaultYearID returns the id of the seeded year for the current calendar year.
func DefaultYearID() string {
	return "year-" + strconv.Itoa(time.Now().Year())
}

// Seed creates a year, a working group and a verified admin author in an
// empty local store so the service is usable in development.
func Seed(ctx context.Context, s *DocumentStore) error {
	yearID := DefaultYearID()
	yearRef := model.Ref(yearID)

	_, err := s.AuthorByLogin(ctx, DefaultAdminLogin, "")
	if err == nil {
		slog.Info("admin author already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, cms.ErrNotFound) {
		return fmt.Errorf("checking for admin author: %w", err)
	}

	passwordHash, err := auth.NewHasher().Hash(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	tx := cms.NewTransaction().
		CreateOrReplace(&model.Year{ID: yearID, Type: model.TypeYear, Title: strconv.Itoa(time.Now().Year())}).
		CreateOrReplace(&model.WorkingGroup{
			ID:    DefaultWorkingGroup,
			Type:  model.TypeWorkingGroup,
			Title: "General",
			Year:  yearRef,
		}).
		Create(&model.Author{
			Type:         model.TypeAuthor,
			Name:         DefaultAdminName,
			LoginName:    DefaultAdminLogin,
			PasswordHash: passwordHash,
			Verified:     true,
			IsAdmin:      true,
			Year:         &yearRef,
		})

	ids, err := s.Commit(ctx, tx)
	if err != nil {
		return fmt.Errorf("seeding documents: %w", err)
	}

	slog.Info("created default admin author",
		"id", ids[2],
		"login_name", DefaultAdminLogin,
		"password", DefaultAdminPassword,
		"year", yearID,
	)

	return nil
}
