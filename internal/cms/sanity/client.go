// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sanity implements the content repository and asset uploader on
// top of the Sanity HTTP API (query, mutate and assets endpoints).
package sanity

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
)

// DefaultAPIVersion is the dated API version the queries are written for.
const DefaultAPIVersion = "2024-01-01"

const defaultTimeout = 30 * time.Second

// Config holds the connection settings of a Sanity dataset.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	// Token authorizes writes and reads of unpublished documents.
	Token string
	// BaseURL overrides https://<project>.api.sanity.io.
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to one Sanity dataset.
type Client struct {
	baseURL    *url.URL
	dataset    string
	apiVersion string
	token      string
	http       *http.Client
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		return nil, errors.New("sanity: project id is required")
	}
	if cfg.Dataset == "" {
		return nil, errors.New("sanity: dataset is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("sanity: parsing base URL: %w", err)
	}

	return &Client{
		baseURL:    base,
		dataset:    cfg.Dataset,
		apiVersion: strings.TrimPrefix(cfg.APIVersion, "v"),
		token:      cfg.Token,
		http:       cfg.HTTPClient,
	}, nil
}

// APIError is an error response of the Sanity API.
type APIError struct {
	StatusCode  int
	Type        string
	Description string
	Items       []ItemError
}

// ItemError describes why one mutation of a transaction failed.
type ItemError struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("sanity: %d %s: %s", e.StatusCode, e.Type, e.Description)
	}
	return fmt.Sprintf("sanity: %d: %s", e.StatusCode, e.Description)
}

// Is matches cms.ErrNotFound when a mutation targeted a missing document.
func (e *APIError) Is(target error) bool {
	if target != cms.ErrNotFound {
		return false
	}
	for _, item := range e.Items {
		if item.Type == "documentNotFoundError" {
			return true
		}
	}
	return false
}

func (c *Client) endpoint(query url.Values, parts ...string) string {
	u := *c.baseURL
	u.Path = u.Path + "/v" + c.apiVersion + "/" + strings.Join(parts, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends req and decodes a successful JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sanity: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("sanity: reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("sanity: decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Description: http.StatusText(status)}

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apiErr
	}
	if envelope.Message != "" {
		apiErr.Description = envelope.Message
	}

	var detail struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		Items       []struct {
			Error ItemError `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		apiErr.Type = detail.Type
		if detail.Description != "" {
			apiErr.Description = detail.Description
		}
		for _, item := range detail.Items {
			apiErr.Items = append(apiErr.Items, item.Error)
		}
	}
	return apiErr
}

// Query runs a GROQ query and decodes its result into out. A null result
// is reported as cms.ErrNotFound.
func (c *Client) Query(ctx context.Context, groq string, params map[string]any, out any) error {
	q := url.Values{}
	q.Set("query", groq)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("sanity: encoding param %s: %w", name, err)
		}
		q.Set("$"+name, string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(q, "data", "query", c.dataset), nil)
	if err != nil {
		return fmt.Errorf("sanity: building query request: %w", err)
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if len(resp.Result) == 0 || bytes.Equal(resp.Result, []byte("null")) {
		return cms.ErrNotFound
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("sanity: decoding query result: %w", err)
	}
	return nil
}

// Mutate sends the mutations as one transaction and returns the ids of the
// documents written.
func (c *Client) Mutate(ctx context.Context, mutations []cms.Mutation) ([]string, error) {
	wire := make([]map[string]any, 0, len(mutations))
	for _, m := range mutations {
		encoded, err := encodeMutation(m)
		if err != nil {
			return nil, err
		}
		wire = append(wire, encoded)
	}

	payload, err := json.Marshal(map[string]any{"mutations": wire})
	if err != nil {
		return nil, fmt.Errorf("sanity: encoding mutations: %w", err)
	}

	q := url.Values{}
	q.Set("returnIds", "true")
	q.Set("visibility", "sync")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(q, "data", "mutate", c.dataset), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sanity: building mutate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		TransactionID string `json:"transactionId"`
		Results       []struct {
			ID        string `json:"id"`
			Operation string `json:"operation"`
		} `json:"results"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func encodeMutation(m cms.Mutation) (map[string]any, error) {
	switch m.Kind {
	case cms.MutationCreate:
		return map[string]any{"create": m.Document}, nil
	case cms.MutationCreateOrReplace:
		if m.Document.DocumentID() == "" {
			return nil, errors.New("sanity: createOrReplace requires a document id")
		}
		return map[string]any{"createOrReplace": m.Document}, nil
	case cms.MutationPatch:
		if m.ID == "" {
			return nil, errors.New("sanity: patch requires a document id")
		}
		return map[string]any{"patch": map[string]any{"id": m.ID, "set": m.Set}}, nil
	default:
		return nil, fmt.Errorf("sanity: unknown mutation kind %q", m.Kind)
	}
}

// Upload stores the binary as an image or file asset.
func (c *Client) Upload(ctx context.Context, kind model.AssetKind, r io.Reader, filename string) (*model.Asset, error) {
	var endpoint string
	switch kind {
	case model.AssetImage:
		endpoint = "images"
	case model.AssetFile:
		endpoint = "files"
	default:
		return nil, fmt.Errorf("sanity: unknown asset kind %q", kind)
	}

	br := bufio.NewReader(r)
	head, _ := br.Peek(512)
	contentType := http.DetectContentType(head)

	q := url.Values{}
	if filename != "" {
		q.Set("filename", filename)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(q, "assets", endpoint, c.dataset), br)
	if err != nil {
		return nil, fmt.Errorf("sanity: building upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var resp struct {
		Document model.Asset `json:"document"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.Document.ID == "" {
		return nil, errors.New("sanity: upload response has no asset id")
	}
	return &resp.Document, nil
}
