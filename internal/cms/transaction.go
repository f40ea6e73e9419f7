// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cms

import (
	"github.com/olegiv/urfield-go/internal/model"
)

// MutationKind names the write operation of a Mutation.
type MutationKind string

// Mutation kinds.
const (
	MutationCreate          MutationKind = "create"
	MutationCreateOrReplace MutationKind = "createOrReplace"
	MutationPatch           MutationKind = "patch"
)

// Mutation is one write of a Transaction. Create and CreateOrReplace carry
// a Document; Patch carries the target ID and the fields to set.
type Mutation struct {
	Kind     MutationKind
	Document model.Document
	ID       string
	Set      map[string]any
}

// TargetID returns the id of the document the mutation writes, which is
// empty for a create that lets the repository assign it.
func (m Mutation) TargetID() string {
	if m.Kind == MutationPatch {
		return m.ID
	}
	return m.Document.DocumentID()
}

// Transaction is an ordered list of mutations committed atomically.
type Transaction struct {
	mutations []Mutation
}

// NewTransaction returns an empty transaction.
func NewTransaction() *Transaction {
	return &Transaction{}
}

// Create adds a document creation. The document id may be empty.
func (t *Transaction) Create(doc model.Document) *Transaction {
	t.mutations = append(t.mutations, Mutation{Kind: MutationCreate, Document: doc})
	return t
}

// CreateOrReplace adds a full replace of the document with doc's id,
// creating it when absent.
func (t *Transaction) CreateOrReplace(doc model.Document) *Transaction {
	t.mutations = append(t.mutations, Mutation{Kind: MutationCreateOrReplace, Document: doc})
	return t
}

// Patch adds a targeted update setting the given top-level fields.
func (t *Transaction) Patch(id string, set map[string]any) *Transaction {
	t.mutations = append(t.mutations, Mutation{Kind: MutationPatch, ID: id, Set: set})
	return t
}

// Mutations returns the mutations in order.
func (t *Transaction) Mutations() []Mutation {
	return t.mutations
}

// Len returns the number of mutations.
func (t *Transaction) Len() int {
	return len(t.mutations)
}
