// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/olegiv/urfield-go/internal/auth"
	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/store"
	"github.com/olegiv/urfield-go/internal/testutil"
)

// memorySessions is a SessionStore holding a single session.
type memorySessions struct {
	mu        sync.Mutex
	sess      model.Session
	saves     int
	destroyed int
}

func (m *memorySessions) Load(context.Context) model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

func (m *memorySessions) Save(_ context.Context, sess model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = sess
	m.saves++
	return nil
}

func (m *memorySessions) Destroy(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = model.Session{}
	m.destroyed++
	return nil
}

// fakeUploader records uploads and returns sequential asset ids. Uploads of
// a filename listed in failOn fail.
type fakeUploader struct {
	mu      sync.Mutex
	uploads []fakeUpload
	failOn  map[string]bool
}

type fakeUpload struct {
	Kind     model.AssetKind
	Filename string
	Data     string
}

func (f *fakeUploader) Upload(_ context.Context, kind model.AssetKind, r io.Reader, filename string) (*model.Asset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[filename] {
		return nil, errors.New("upload rejected")
	}
	f.uploads = append(f.uploads, fakeUpload{Kind: kind, Filename: filename, Data: string(data)})
	id := fmt.Sprintf("%s-%s-%d", kind, strings.TrimSuffix(filename, ".bin"), len(f.uploads))
	return &model.Asset{ID: id, URL: "https://cdn.test/" + id}, nil
}

func (f *fakeUploader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeUploader) byFilename(name string) (fakeUpload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.uploads {
		if u.Filename == name {
			return u, true
		}
	}
	return fakeUpload{}, false
}

func upload(filename, data string) *Upload {
	return &Upload{Reader: strings.NewReader(data), Filename: filename, Size: int64(len(data))}
}

// countingRepo counts the transactions the services commit.
type countingRepo struct {
	cms.Repository
	mu      sync.Mutex
	commits int
}

func (r *countingRepo) Commit(ctx context.Context, tx *cms.Transaction) ([]string, error) {
	r.mu.Lock()
	r.commits++
	r.mu.Unlock()
	return r.Repository.Commit(ctx, tx)
}

func (r *countingRepo) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

// fixture wires the services to a fresh SQLite document store.
type fixture struct {
	repo     *store.DocumentStore
	writes   *countingRepo
	uploader *fakeUploader
	sessions *memorySessions
	hasher   *auth.Hasher
	auth     *AuthService
	articles *ArticleService
	verify   *VerifyService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	repo := store.NewDocumentStore(db)
	testutil.SeedContent(t, repo)

	f := &fixture{
		repo:     repo,
		writes:   &countingRepo{Repository: repo},
		uploader: &fakeUploader{},
		sessions: &memorySessions{},
		hasher:   auth.NewHasherWithCost(bcrypt.MinCost),
	}
	logger := testutil.TestLogger()
	f.auth = NewAuthService(f.writes, f.uploader, f.sessions, f.hasher, logger)
	f.articles = NewArticleService(f.writes, f.uploader, f.sessions, NewReferenceValidator(f.writes), logger)
	f.verify = NewVerifyService(f.writes, f.sessions, logger)
	return f
}

// author stores an author of testutil.YearID with the given password.
func (f *fixture) author(t *testing.T, loginName, password string, verified, admin bool) *model.Author {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	yearRef := model.Ref(testutil.YearID)
	a := &model.Author{
		Name:         strings.ToUpper(loginName[:1]) + loginName[1:],
		LoginName:    loginName,
		PasswordHash: hash,
		Verified:     verified,
		IsAdmin:      admin,
		Year:         &yearRef,
	}
	testutil.CreateAuthor(t, f.repo, a)
	return a
}

// loginAs puts a session for a into the session store.
func (f *fixture) loginAs(a *model.Author) {
	f.sessions.sess = model.NewSession(a, testutil.YearID)
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("error kind = %s, want %s (err: %v)", got, want, err)
	}
}
