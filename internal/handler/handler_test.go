// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/olegiv/urfield-go/internal/auth"
	"github.com/olegiv/urfield-go/internal/media"
	"github.com/olegiv/urfield-go/internal/middleware"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/service"
	"github.com/olegiv/urfield-go/internal/session"
	"github.com/olegiv/urfield-go/internal/store"
	"github.com/olegiv/urfield-go/internal/testutil"
	"github.com/olegiv/urfield-go/internal/version"
)

// testEnv is a running API backed by a temporary SQLite database and a
// local asset directory.
type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	db     *sql.DB
	repo   *store.DocumentStore
	hasher *auth.Hasher
	events *service.EventService
}

func newTestEnv(t *testing.T, maxFailedAttempts int) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	repo := store.NewDocumentStore(db)
	testutil.SeedContent(t, repo)

	logger := testutil.TestLogger()
	uploadsDir := t.TempDir()
	uploader := media.NewLocal(media.Config{Dir: uploadsDir}, repo)
	sm := session.New(db, true)
	sessions := session.NewStore(sm)
	hasher := auth.NewHasherWithCost(bcrypt.MinCost)
	events := service.NewEventService(db)

	authService := service.NewAuthService(repo, uploader, sessions, hasher, logger)
	articleService := service.NewArticleService(repo, uploader, sessions, service.NewReferenceValidator(repo), logger)
	verifyService := service.NewVerifyService(repo, sessions, logger)

	protection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       100,
		IPBurst:           100,
		MaxFailedAttempts: maxFailedAttempts,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})
	t.Cleanup(protection.Close)

	const maxUpload = 10 << 20
	router := NewRouter(RouterConfig{
		Auth:            NewAuthHandler(authService, events, protection, maxUpload, logger),
		Articles:        NewArticlesHandler(articleService, authService, events, maxUpload, logger),
		Verify:          NewVerifyHandler(verifyService, authService, events, logger),
		Health:          NewHealthHandler(db, uploadsDir, version.Info{Version: "test"}),
		Sessions:        sm,
		LoginProtection: protection,
		CSRF:            middleware.DefaultCSRFConfig(make([]byte, 32), true),
		IsDevelopment:   true,
		Uploads:         uploader.FileServer(),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		srv:    srv,
		client: &http.Client{Jar: jar},
		db:     db,
		repo:   repo,
		hasher: hasher,
		events: events,
	}
}

// author stores an author of testutil.YearID and returns its id.
func (e *testEnv) author(t *testing.T, login, password string, verified, admin bool) string {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	yearRef := model.Ref(testutil.YearID)
	return testutil.CreateAuthor(t, e.repo, &model.Author{
		Name:         login,
		LoginName:    login,
		PasswordHash: hash,
		Verified:     verified,
		IsAdmin:      admin,
		Year:         &yearRef,
	})
}

// login logs the test client in and fails the test unless it succeeds.
func (e *testEnv) login(t *testing.T, login, password string) {
	t.Helper()
	status, body := e.postJSON(t, "/auth/login", map[string]string{
		"loginName": login,
		"password":  password,
		"yearId":    testutil.YearID,
	})
	require.Equal(t, http.StatusOK, status, "login: %v", body)
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body := map[string]any{}
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func (e *testEnv) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	return e.do(t, req)
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

// filePart is a file field of a multipart request.
type filePart struct {
	filename string
	data     []byte
}

func (e *testEnv) postMultipart(t *testing.T, path string, fields map[string]string, files map[string]filePart) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, f := range files {
		w, err := mw.CreateFormFile(field, f.filename)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(t, req)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind service.Kind
		want int
	}{
		{service.KindMissingFields, http.StatusBadRequest},
		{service.KindInvalidRequest, http.StatusBadRequest},
		{service.KindMissingMainImage, http.StatusBadRequest},
		{service.KindInvalidCredentials, http.StatusUnauthorized},
		{service.KindUnauthorized, http.StatusUnauthorized},
		{service.KindNotVerified, http.StatusForbidden},
		{service.KindForbidden, http.StatusForbidden},
		{service.KindNotFound, http.StatusNotFound},
		{service.KindDuplicateLogin, http.StatusConflict},
		{service.KindUploadFailed, http.StatusInternalServerError},
		{service.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			require.Equal(t, tt.want, statusForKind(tt.kind))
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 5)

	status, body := env.get(t, "/health")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "test", body["version"])
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, 5)

	status, body := env.get(t, "/pages")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, false, body["success"])
}
