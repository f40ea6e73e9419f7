// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
)

// ReferenceValidator checks that the working groups and authors of an
// article belong to the article's year.
type ReferenceValidator interface {
	ValidateReferences(ctx context.Context, yearID string, workingGroupIDs, authorIDs []string) error
}

// RepositoryReferenceValidator validates references against the content repository.
type RepositoryReferenceValidator struct {
	repo cms.Repository
}

// NewReferenceValidator creates a validator backed by repo.
func NewReferenceValidator(repo cms.Repository) *RepositoryReferenceValidator {
	return &RepositoryReferenceValidator{repo: repo}
}

// ValidateReferences returns an InvalidRequest error naming every id that
// does not exist in yearID.
func (v *RepositoryReferenceValidator) ValidateReferences(ctx context.Context, yearID string, workingGroupIDs, authorIDs []string) error {
	missingGroups, err := v.repo.MissingReferences(ctx, model.TypeWorkingGroup, yearID, workingGroupIDs)
	if err != nil {
		return wrapError(KindInternal, "", fmt.Errorf("checking working groups: %w", err))
	}
	missingAuthors, err := v.repo.MissingReferences(ctx, model.TypeAuthor, yearID, authorIDs)
	if err != nil {
		return wrapError(KindInternal, "", fmt.Errorf("checking authors: %w", err))
	}

	var problems []string
	if len(missingGroups) > 0 {
		problems = append(problems, "unknown working groups: "+strings.Join(missingGroups, ", "))
	}
	if len(missingAuthors) > 0 {
		problems = append(problems, "unknown authors: "+strings.Join(missingAuthors, ", "))
	}
	if len(problems) > 0 {
		return newError(KindInvalidRequest, fmt.Sprintf("Invalid references for year %s (%s)", yearID, strings.Join(problems, "; ")))
	}
	return nil
}
