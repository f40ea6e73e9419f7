// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media stores uploaded assets on local disk for the SQLite
// backend. Every upload gets an asset document in the repository so
// authors and articles can reference it like a hosted CMS asset.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/imaging"
	"github.com/olegiv/urfield-go/internal/model"
)

// Upload limits
const (
	MaxUploadSize    = 20 * 1024 * 1024 // 20MB
	DefaultUploadDir = "./uploads"
)

// Upload errors.
var (
	ErrTooLarge        = errors.New("file size exceeds maximum allowed")
	ErrUnsupportedType = errors.New("file type is not allowed")
)

// AllowedFileTypes defines the MIME types accepted for file assets.
var AllowedFileTypes = map[string]bool{
	model.MimeTypePDF: true,
}

var _ cms.Uploader = (*Local)(nil)

// Config configures a Local uploader.
type Config struct {
	Dir string
	// PublicURL prefixes asset URLs, e.g. http://localhost:8080.
	PublicURL string
	MaxSize   int64
}

// Local writes assets below Dir and records them in the repository.
type Local struct {
	dir       string
	publicURL string
	maxSize   int64
	processor *imaging.Processor
	repo      cms.Repository
}

// NewLocal creates a local uploader.
func NewLocal(cfg Config, repo cms.Repository) *Local {
	if cfg.Dir == "" {
		cfg.Dir = DefaultUploadDir
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = MaxUploadSize
	}
	return &Local{
		dir:       cfg.Dir,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		maxSize:   cfg.MaxSize,
		processor: imaging.NewProcessor(),
		repo:      repo,
	}
}

// Upload implements cms.Uploader. Images are normalized before saving.
func (l *Local) Upload(ctx context.Context, kind model.AssetKind, r io.Reader, filename string) (*model.Asset, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > l.maxSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, l.maxSize)
	}

	fileUUID := uuid.New().String()
	name := sanitizeFilename(filename)

	doc := &model.AssetDocument{OriginalFilename: filepath.Base(filename)}
	var subDir string

	switch kind {
	case model.AssetImage:
		res, err := l.processor.Process(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to process image: %w", err)
		}
		data = res.Data
		name = strings.TrimSuffix(name, filepath.Ext(name)) + res.Ext
		subDir = filepath.Join("images", fileUUID)

		doc.ID = "image-" + fileUUID
		doc.Type = model.TypeImageAsset
		doc.MimeType = res.MimeType
		doc.Metadata = &model.AssetMetadata{Dimensions: model.Dimensions{Width: res.Width, Height: res.Height}}

	case model.AssetFile:
		mimeType := imaging.DetectMimeType(data)
		if !AllowedFileTypes[mimeType] {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
		}
		subDir = filepath.Join("files", fileUUID)

		doc.ID = "file-" + fileUUID
		doc.Type = model.TypeFileAsset
		doc.MimeType = mimeType

	default:
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}

	if err := l.saveFile(subDir, name, data); err != nil {
		return nil, err
	}

	doc.Size = int64(len(data))
	doc.URL = l.publicURL + "/uploads/" + filepath.ToSlash(subDir) + "/" + url.PathEscape(name)

	if _, err := l.repo.Commit(ctx, cms.NewTransaction().Create(doc)); err != nil {
		// Clean up uploaded files on error
		_ = os.RemoveAll(filepath.Join(l.dir, subDir))
		return nil, fmt.Errorf("failed to create asset record: %w", err)
	}

	return &model.Asset{ID: doc.ID, URL: doc.URL}, nil
}

// FileServer serves stored assets. Directory listings are not served.
func (l *Local) FileServer() http.Handler {
	fs := http.FileServer(http.Dir(l.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// saveFile creates the directory if needed and writes data to it.
// The target directory is validated to be within the upload directory.
func (l *Local) saveFile(subDir, filename string, data []byte) error {
	cleanSubDir := filepath.Clean(subDir)
	if strings.Contains(cleanSubDir, "..") || filepath.IsAbs(cleanSubDir) {
		return fmt.Errorf("invalid subdirectory path")
	}

	absBase, err := filepath.Abs(l.dir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	absTarget := filepath.Join(absBase, cleanSubDir)
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected")
	}

	if err := os.MkdirAll(absTarget, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(absTarget, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func sanitizeFilename(filename string) string {
	// Remove path separators
	filename = filepath.Base(filename)
	if filename == "." || filename == ".." || filename == "/" {
		filename = ""
	}

	replacer := strings.NewReplacer(
		" ", "-",
		"'", "",
		"\"", "",
		"<", "",
		">", "",
		"&", "",
		"#", "",
		"?", "",
		"%", "",
		"\\", "",
	)
	filename = replacer.Replace(filename)

	if strings.TrimSuffix(filename, filepath.Ext(filename)) == "" {
		filename = "upload" + filename
	}
	if filepath.Ext(filename) == "" {
		filename += ".bin"
	}

	return filename
}
