// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Year is an event edition. Authors, working groups and articles belong to one.
type Year struct {
	ID    string `json:"_id,omitempty"`
	Type  string `json:"_type"`
	Title string `json:"title"`
}

// DocumentID implements Document.
func (y *Year) DocumentID() string { return y.ID }

// DocumentType implements Document.
func (y *Year) DocumentType() string { return TypeYear }

// WorkingGroup is a thematic group of a year that articles are filed under.
type WorkingGroup struct {
	ID    string    `json:"_id,omitempty"`
	Type  string    `json:"_type"`
	Title string    `json:"title"`
	Year  Reference `json:"year"`
}

// DocumentID implements Document.
func (w *WorkingGroup) DocumentID() string { return w.ID }

// DocumentType implements Document.
func (w *WorkingGroup) DocumentType() string { return TypeWorkingGroup }
