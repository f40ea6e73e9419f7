// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/olegiv/urfield-go/internal/service"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// multipartForm wraps a parsed multipart request and the files opened from it.
type multipartForm struct {
	r     *http.Request
	files []multipart.File
}

// parseMultipart parses a multipart request limited to maxBytes.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) (*multipartForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &service.Error{Kind: service.KindInvalidRequest, Message: "Request body too large", Err: err}
		}
		return nil, &service.Error{Kind: service.KindInvalidRequest, Err: err}
	}
	return &multipartForm{r: r}, nil
}

// value returns the trimmed value of the first non-empty field of names.
func (f *multipartForm) value(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(f.r.FormValue(name)); v != "" {
			return v
		}
	}
	return ""
}

// bool reads a checkbox style field.
func (f *multipartForm) bool(name string) bool {
	switch strings.ToLower(f.value(name)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// ids reads a list of document ids sent as a JSON array, as repeated
// fields or as a comma separated value.
func (f *multipartForm) ids(name string) ([]string, error) {
	values := f.r.MultipartForm.Value[name]
	if len(values) == 1 {
		raw := strings.TrimSpace(values[0])
		if strings.HasPrefix(raw, "[") {
			var ids []string
			if err := json.Unmarshal([]byte(raw), &ids); err != nil {
				return nil, &service.Error{Kind: service.KindInvalidRequest, Message: "Invalid " + name, Err: err}
			}
			return ids, nil
		}
		return strings.Split(raw, ","), nil
	}
	return values, nil
}

// upload opens the file part of field. It returns nil when the field is
// absent or empty.
func (f *multipartForm) upload(field string) (*service.Upload, error) {
	headers := f.r.MultipartForm.File[field]
	if len(headers) == 0 || headers[0].Size == 0 {
		return nil, nil
	}
	return f.open(headers[0])
}

func (f *multipartForm) open(fh *multipart.FileHeader) (*service.Upload, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	f.files = append(f.files, file)
	return &service.Upload{Reader: file, Filename: fh.Filename, Size: fh.Size}, nil
}

// uploadsExcept opens every non-empty file part except the named fields,
// keyed by field name.
func (f *multipartForm) uploadsExcept(skip ...string) (map[string]*service.Upload, error) {
	uploads := make(map[string]*service.Upload)
	for field, headers := range f.r.MultipartForm.File {
		if slices.Contains(skip, field) || len(headers) == 0 || headers[0].Size == 0 {
			continue
		}
		u, err := f.open(headers[0])
		if err != nil {
			return nil, err
		}
		uploads[field] = u
	}
	return uploads, nil
}

// Close closes the opened files and removes temporary files.
func (f *multipartForm) Close() {
	for _, file := range f.files {
		_ = file.Close()
	}
	if f.r.MultipartForm != nil {
		_ = f.r.MultipartForm.RemoveAll()
	}
}
