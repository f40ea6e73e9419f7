// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the urfield packages.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestDB creates a temporary test database with migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "urfield-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
}

// Fixture ids created by SeedContent.
const (
	YearID       = "year-test"
	OtherYearID  = "year-other"
	GroupID      = "wg-test"
	OtherGroupID = "wg-other"
)

// SeedContent writes two years with one working group each.
func SeedContent(t *testing.T, repo cms.Repository) {
	t.Helper()

	tx := cms.NewTransaction().
		CreateOrReplace(&model.Year{ID: YearID, Type: model.TypeYear, Title: "Test"}).
		CreateOrReplace(&model.Year{ID: OtherYearID, Type: model.TypeYear, Title: "Other"}).
		CreateOrReplace(&model.WorkingGroup{ID: GroupID, Type: model.TypeWorkingGroup, Title: "Group", Year: model.Ref(YearID)}).
		CreateOrReplace(&model.WorkingGroup{ID: OtherGroupID, Type: model.TypeWorkingGroup, Title: "Other", Year: model.Ref(OtherYearID)})

	if _, err := repo.Commit(context.Background(), tx); err != nil {
		t.Fatalf("seeding content: %v", err)
	}
}

// CreateAuthor stores a with a fresh id and returns the id.
func CreateAuthor(t *testing.T, repo cms.Repository, a *model.Author) string {
	t.Helper()

	a.Type = model.TypeAuthor
	ids, err := repo.Commit(context.Background(), cms.NewTransaction().Create(a))
	if err != nil {
		t.Fatalf("creating author: %v", err)
	}
	a.ID = ids[0]
	return ids[0]
}
