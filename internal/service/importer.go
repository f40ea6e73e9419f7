// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/imaging"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/richtext"
	"github.com/olegiv/urfield-go/internal/util"
)

// Import defaults.
const (
	// DefaultImportPasswordHash is the bcrypt hash given to imported authors
	// until they change it.
	DefaultImportPasswordHash = "$2b$10$SpjZBm012Rb5dP9/Ti02TOtn2QEgOlTbLUjCFLjIXqqxo5P4N.gn2"
	maxRemoteFileSize         = 10 << 20
	placeholderSize           = 256
	bioSelectorClass          = "author-profile-bio"
	importedMessage           = "Uploaded!"
)

// ImportAuthor is one entry of an author import file.
type ImportAuthor struct {
	Name      string `json:"name"`
	Institute string `json:"institute"`
	Picture   string `json:"picture"`
	Bio       string `json:"bio,omitempty"`
	BioURL    string `json:"bioUrl,omitempty"`
}

// ImportResult reports the outcome for one imported author.
type ImportResult struct {
	Name      string `json:"name"`
	ID        string `json:"id,omitempty"`
	LoginName string `json:"loginName,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// ImporterConfig configures an Importer.
type ImporterConfig struct {
	// PasswordHash is stored for every imported author.
	PasswordHash string
	// DefaultPicture is a local image used when the remote picture cannot
	// be fetched. When empty or unreadable a placeholder is generated.
	DefaultPicture string
	// HTTPClient fetches pictures and bio pages. Defaults to a client that
	// only reaches public addresses.
	HTTPClient *http.Client
	// AllowPrivateNetwork skips the public address check of remote URLs.
	AllowPrivateNetwork bool
}

// Importer creates pre-verified authors from an external list.
type Importer struct {
	repo      cms.Repository
	uploader  cms.Uploader
	events    *EventService
	images    *imaging.Processor
	sanitizer *richtext.Sanitizer
	cfg       ImporterConfig
	logger    *slog.Logger
}

// NewImporter creates an Importer. events may be nil.
func NewImporter(repo cms.Repository, uploader cms.Uploader, events *EventService, cfg ImporterConfig, logger *slog.Logger) *Importer {
	if cfg.PasswordHash == "" {
		cfg.PasswordHash = DefaultImportPasswordHash
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = util.NewRemoteHTTPClient(30 * time.Second)
	}
	return &Importer{
		repo:      repo,
		uploader:  uploader,
		events:    events,
		images:    imaging.NewProcessor(),
		sanitizer: richtext.NewSanitizer(),
		cfg:       cfg,
		logger:    logger,
	}
}

// ImportAuthors imports every author of list into yearID. A failing author
// is reported in its result and does not stop the import.
func (im *Importer) ImportAuthors(ctx context.Context, yearID string, list []ImportAuthor) ([]ImportResult, error) {
	yearID = strings.TrimSpace(yearID)
	if yearID == "" {
		return nil, newError(KindMissingFields, "Year id is required")
	}

	results := make([]ImportResult, 0, len(list))
	imported := 0
	for _, a := range list {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := im.importAuthor(ctx, yearID, a)
		if res.Success {
			imported++
		} else {
			im.logger.Warn("author import failed", "name", res.Name, "error", res.Message)
		}
		results = append(results, res)
	}

	if im.events != nil {
		_ = im.events.LogImportEvent(ctx, model.EventLevelInfo, "Authors imported", map[string]any{
			"year":     yearID,
			"total":    len(list),
			"imported": imported,
		})
	}

	return results, nil
}

func (im *Importer) importAuthor(ctx context.Context, yearID string, a ImportAuthor) ImportResult {
	name := im.sanitizer.Text(a.Name)
	res := ImportResult{Name: name}
	if name == "" {
		res.Message = "name is required"
		return res
	}

	bio := im.sanitizer.Text(a.Bio)
	if bio == "" && a.BioURL != "" {
		scraped, err := im.ScrapeBio(ctx, a.BioURL)
		if err != nil {
			im.logger.Warn("could not scrape bio", "name", name, "url", a.BioURL, "error", err)
		}
		bio = im.sanitizer.Text(scraped)
	}

	asset, err := im.uploadPicture(ctx, name, a.Picture)
	if err != nil {
		res.Message = err.Error()
		return res
	}

	loginName, err := im.uniqueLoginName(ctx, name)
	if err != nil {
		res.Message = err.Error()
		return res
	}

	yearRef := model.Ref(yearID)
	author := &model.Author{
		Type:         model.TypeAuthor,
		Name:         name,
		LoginName:    loginName,
		PasswordHash: im.cfg.PasswordHash,
		Institute:    im.sanitizer.Text(a.Institute),
		Bio:          bio,
		Picture:      model.NewImageRef(asset.ID),
		Verified:     true,
		Year:         &yearRef,
	}

	ids, err := im.repo.Commit(ctx, cms.NewTransaction().Create(author))
	if err != nil {
		res.Message = fmt.Sprintf("creating author: %v", err)
		return res
	}

	res.ID = ids[0]
	res.LoginName = loginName
	res.Success = true
	res.Message = importedMessage
	return res
}

// uploadPicture uploads the remote picture, falling back to the default
// picture and then to a generated placeholder.
func (im *Importer) uploadPicture(ctx context.Context, name, pictureURL string) (*model.Asset, error) {
	if pictureURL != "" {
		data, err := im.fetch(ctx, pictureURL)
		if err == nil {
			asset, upErr := im.uploader.Upload(ctx, model.AssetImage, bytes.NewReader(data), name)
			if upErr == nil {
				return asset, nil
			}
			err = upErr
		}
		im.logger.Warn("could not use remote picture, trying default", "name", name, "error", err)
	}

	if im.cfg.DefaultPicture != "" {
		data, err := os.ReadFile(im.cfg.DefaultPicture)
		if err == nil {
			asset, upErr := im.uploader.Upload(ctx, model.AssetImage, bytes.NewReader(data), filepath.Base(im.cfg.DefaultPicture))
			if upErr == nil {
				return asset, nil
			}
			err = upErr
		}
		im.logger.Warn("could not use default picture, generating placeholder", "name", name, "error", err)
	}

	placeholder, err := im.images.Placeholder(name, placeholderSize)
	if err != nil {
		return nil, err
	}
	asset, err := im.uploader.Upload(ctx, model.AssetImage, bytes.NewReader(placeholder.Data), "placeholder"+placeholder.Ext)
	if err != nil {
		return nil, fmt.Errorf("uploading placeholder picture: %w", err)
	}
	return asset, nil
}

// uniqueLoginName derives a login name from name and appends 1, 2, ...
// until no author uses it.
func (im *Importer) uniqueLoginName(ctx context.Context, name string) (string, error) {
	base := util.LoginNameFromName(name)
	if base == "" {
		base = "author"
	}

	candidate := base
	for counter := 1; ; counter++ {
		taken, err := im.repo.LoginNameTaken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking login name: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(counter)
	}
}

// ScrapeBio returns the first paragraph of the author bio on the profile
// page at pageURL.
func (im *Importer) ScrapeBio(ctx context.Context, pageURL string) (string, error) {
	data, err := im.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	container := findElement(doc, func(n *html.Node) bool { return hasClass(n, bioSelectorClass) })
	if container == nil {
		return "", nil
	}
	p := findElement(container, func(n *html.Node) bool { return n.Data == "p" })
	if p == nil {
		return "", nil
	}
	return strings.TrimSpace(textContent(p)), nil
}

func (im *Importer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !im.cfg.AllowPrivateNetwork {
		if err := util.ValidateRemoteURL(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := im.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxRemoteFileSize {
		return nil, errors.New("remote file is too large")
	}
	return data, nil
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
