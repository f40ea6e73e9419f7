// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testHasher() *Hasher {
	return NewHasherWithCost(bcrypt.MinCost)
}

func TestHash(t *testing.T) {
	hash, err := testHasher().Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("Hash = %q, want bcrypt $2a$ prefix", hash)
	}
}

func TestCompare_Correct(t *testing.T) {
	h := testHasher()
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := h.Compare("secret123", hash)
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if !ok {
		t.Fatal("correct password was rejected")
	}
}

func TestCompare_Wrong(t *testing.T) {
	h := testHasher()
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := h.Compare("wrong", hash)
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if ok {
		t.Fatal("wrong password was accepted")
	}
}

func TestCompare_ExistingCMSHash(t *testing.T) {
	// Hashes created by bcryptjs use the $2b$ prefix.
	h := testHasher()
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	b := "$2b$" + string(hash)[4:]

	ok, err := h.Compare("changeme", b)
	if err != nil {
		t.Fatalf("Compare error: %v", err)
	}
	if !ok {
		t.Fatal("$2b$ hash rejected correct password")
	}
}

func TestCompare_MalformedHash(t *testing.T) {
	ok, err := testHasher().Compare("secret", "not-a-hash")
	if err == nil {
		t.Fatal("expected error for malformed hash")
	}
	if ok {
		t.Fatal("malformed hash must not match")
	}
}

func TestHash_TooLong(t *testing.T) {
	_, err := testHasher().Hash(strings.Repeat("a", MaxPasswordLength+1))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("error = %v, want ErrPasswordTooLong", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}

	tests := []struct {
		name   string
		hasher *Hasher
		hash   string
		want   bool
	}{
		{"same cost", testHasher(), string(weak), false},
		{"higher target cost", NewHasher(), string(weak), true},
		{"garbage", NewHasher(), "garbage", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hasher.NeedsRehash(tt.hash); got != tt.want {
				t.Errorf("NeedsRehash() = %v, want %v", got, tt.want)
			}
		})
	}
}
