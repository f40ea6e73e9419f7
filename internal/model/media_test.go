// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
)

func TestAssetKindValid(t *testing.T) {
	tests := []struct {
		kind AssetKind
		want bool
	}{
		{AssetImage, true},
		{AssetFile, true},
		{"video", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssetDocumentIsDocument(t *testing.T) {
	var doc Document = &AssetDocument{ID: "image-abc", Type: TypeImageAsset}
	if doc.DocumentID() != "image-abc" {
		t.Errorf("DocumentID() = %q", doc.DocumentID())
	}
	if doc.DocumentType() != TypeImageAsset {
		t.Errorf("DocumentType() = %q", doc.DocumentType())
	}
}

func TestAssetDocumentJSON(t *testing.T) {
	doc := AssetDocument{
		ID:               "image-abc",
		Type:             TypeImageAsset,
		URL:              "/uploads/images/abc.jpg",
		OriginalFilename: "photo.jpg",
		MimeType:         MimeTypeJPEG,
		Size:             2048,
		Metadata:         &AssetMetadata{Dimensions: Dimensions{Width: 640, Height: 480}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"_id", "_type", "url", "originalFilename", "mimeType", "size", "metadata"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	dims := raw["metadata"].(map[string]any)["dimensions"].(map[string]any)
	if dims["width"] != float64(640) || dims["height"] != float64(480) {
		t.Errorf("dimensions = %v", dims)
	}

	// Files have no dimensions.
	data, err = json.Marshal(AssetDocument{ID: "file-1", Type: TypeFileAsset, MimeType: MimeTypePDF})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var file map[string]any
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := file["metadata"]; ok {
		t.Errorf("file asset should omit metadata: %s", data)
	}
}
