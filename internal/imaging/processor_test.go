// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"testing"

	"github.com/olegiv/urfield-go/internal/model"
)

// createTestImage creates a simple test image with the given dimensions.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestIsImage(t *testing.T) {
	tests := []struct {
		mimeType string
		want     bool
	}{
		{model.MimeTypeJPEG, true},
		{model.MimeTypePNG, true},
		{model.MimeTypeGIF, true},
		{model.MimeTypeWebP, true},
		{model.MimeTypePDF, false},
		{"application/octet-stream", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			if got := IsImage(tt.mimeType); got != tt.want {
				t.Errorf("IsImage(%q) = %v, want %v", tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg magic bytes", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png magic bytes", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
		{"gif magic bytes", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61}, "gif"},
		{"pdf", []byte("%PDF-1.7"), ""},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectFormat(tt.data); got != tt.want {
				t.Errorf("detectFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectMimeType(t *testing.T) {
	if got := DetectMimeType([]byte("%PDF-1.7\n")); got != model.MimeTypePDF {
		t.Errorf("DetectMimeType(pdf) = %q", got)
	}
	if got := DetectMimeType([]byte("hello")); got != "text/plain" {
		t.Errorf("DetectMimeType(text) = %q, want text/plain without charset", got)
	}
}

func TestProcessKeepsSmallPNG(t *testing.T) {
	res, err := NewProcessor().Process(bytes.NewReader(encodePNG(t, createTestImage(40, 20))))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Width != 40 || res.Height != 20 {
		t.Errorf("size = %dx%d, want 40x20", res.Width, res.Height)
	}
	if res.MimeType != model.MimeTypePNG || res.Ext != ".png" {
		t.Errorf("format = %s %s", res.MimeType, res.Ext)
	}
	if _, err := png.Decode(bytes.NewReader(res.Data)); err != nil {
		t.Errorf("output is not a PNG: %v", err)
	}
}

func TestProcessFitsLargeImage(t *testing.T) {
	p := NewProcessorWithOptions(50, DefaultQuality)

	res, err := p.Process(bytes.NewReader(encodePNG(t, createTestImage(200, 100))))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Width != 50 || res.Height != 25 {
		t.Errorf("size = %dx%d, want 50x25", res.Width, res.Height)
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	_, err := NewProcessor().Process(bytes.NewReader([]byte("%PDF-1.7 not an image")))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestPlaceholder(t *testing.T) {
	p := NewProcessor()

	a, err := p.Placeholder("Jane Doe", 64)
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	b, err := p.Placeholder("Jane Doe", 64)
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Error("placeholder must be deterministic for the same seed")
	}

	img, err := png.Decode(bytes.NewReader(a.Data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestFormatToMimeType(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"jpeg", model.MimeTypeJPEG},
		{"png", model.MimeTypePNG},
		{"gif", model.MimeTypeGIF},
		{"unknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := formatToMimeType(tt.format); got != tt.want {
				t.Errorf("formatToMimeType(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestApplyOrientation(t *testing.T) {
	tests := []struct {
		orientation   int
		width, height int
	}{
		{1, 10, 4}, {2, 10, 4}, {3, 10, 4}, {4, 10, 4},
		{5, 4, 10}, {6, 4, 10}, {7, 4, 10}, {8, 4, 10},
		{0, 10, 4}, {9, 10, 4},
	}

	for _, tt := range tests {
		t.Run("orientation_"+strconv.Itoa(tt.orientation), func(t *testing.T) {
			result := applyOrientation(createTestImage(10, 4), tt.orientation)
			b := result.Bounds()
			if b.Dx() != tt.width || b.Dy() != tt.height {
				t.Errorf("bounds = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.width, tt.height)
			}
		})
	}
}
