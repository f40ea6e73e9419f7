// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/richtext"
	"github.com/olegiv/urfield-go/internal/util"
)

// Article workflow messages.
const (
	ArticleCreatedMessage = "Article created successfully"
	ArticleUpdatedMessage = "Article updated successfully"
	articleNotFound       = "Article does not exist."
)

// MainImageKey is the upload name of the main image. Body blocks cannot use
// it as their key.
const MainImageKey = "mainImage"

// DefaultUploadConcurrency caps the number of parallel asset uploads of one submission.
const DefaultUploadConcurrency = 4

// ArticleInput holds a submitted article. An empty ArticleID creates a new
// article; otherwise the article with that id is replaced. BlockFiles maps
// body block keys to the file uploaded for that block.
type ArticleInput struct {
	ArticleID        string
	Title            string
	YearID           string
	WorkingGroupIDs  []string
	AuthorIDs        []string
	AuthorListPrefix string
	Summary          string
	HasBody          bool
	ButtonText       string
	Body             model.Body
	MainImage        *Upload
	BlockFiles       map[string]*Upload
}

// SubmitResult is returned by the submission operations.
type SubmitResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Created bool   `json:"-"`
}

// ArticleService creates and updates articles on behalf of logged-in authors.
type ArticleService struct {
	repo        cms.Repository
	uploader    cms.Uploader
	sessions    SessionStore
	refs        ReferenceValidator
	sanitizer   *richtext.Sanitizer
	converter   *richtext.Converter
	logger      *slog.Logger
	concurrency int
}

// NewArticleService creates a new ArticleService.
func NewArticleService(repo cms.Repository, uploader cms.Uploader, sessions SessionStore, refs ReferenceValidator, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		repo:        repo,
		uploader:    uploader,
		sessions:    sessions,
		refs:        refs,
		sanitizer:   richtext.NewSanitizer(),
		converter:   richtext.NewConverter(),
		logger:      logger,
		concurrency: DefaultUploadConcurrency,
	}
}

// SetUploadConcurrency changes the number of parallel uploads. Values below
// one are ignored.
func (s *ArticleService) SetUploadConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Submit creates the article when in.ArticleID is empty and updates it otherwise.
func (s *ArticleService) Submit(ctx context.Context, in ArticleInput) (*SubmitResult, error) {
	if strings.TrimSpace(in.ArticleID) == "" {
		return s.CreateArticle(ctx, in)
	}
	return s.UpdateArticle(ctx, in)
}

// CreateArticle stores a new unverified article. A main image is required.
func (s *ArticleService) CreateArticle(ctx context.Context, in ArticleInput) (*SubmitResult, error) {
	sess := s.sessions.Load(ctx)
	if !sess.Authenticated() {
		return nil, ErrUnauthorized
	}

	article, err := s.prepare(sess, in)
	if err != nil {
		return nil, err
	}
	if in.MainImage == nil {
		return nil, ErrMissingMainImage
	}
	if err := s.validateReferences(ctx, article); err != nil {
		return nil, err
	}

	if err := s.resolveAssets(ctx, article, in); err != nil {
		return nil, err
	}

	ids, err := s.repo.Commit(ctx, cms.NewTransaction().Create(article))
	if err != nil {
		s.logger.Error("failed to create article", "author_id", sess.ID, "error", err)
		return nil, wrapError(KindInternal, "", fmt.Errorf("creating article: %w", err))
	}

	s.logger.Info("article created", "article_id", ids[0], "author_id", sess.ID, "year", article.YearID())

	return &SubmitResult{ID: ids[0], Message: ArticleCreatedMessage, Created: true}, nil
}

// UpdateArticle replaces an existing article with the submitted fields and
// sends it back to moderation. Only its authors and admins may update it.
// The stored main image is kept when no new one is uploaded.
func (s *ArticleService) UpdateArticle(ctx context.Context, in ArticleInput) (*SubmitResult, error) {
	sess := s.sessions.Load(ctx)
	if !sess.Authenticated() {
		return nil, ErrUnauthorized
	}

	article, err := s.prepare(sess, in)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(in.ArticleID)
	existing, err := s.editableArticle(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateReferences(ctx, article); err != nil {
		return nil, err
	}
	article.ID = id
	article.MainImage = existing.MainImage

	if err := s.resolveAssets(ctx, article, in); err != nil {
		return nil, err
	}

	if _, err := s.repo.Commit(ctx, cms.NewTransaction().CreateOrReplace(article)); err != nil {
		s.logger.Error("failed to update article", "article_id", id, "author_id", sess.ID, "error", err)
		return nil, wrapError(KindInternal, "", fmt.Errorf("updating article: %w", err))
	}

	s.logger.Info("article updated", "article_id", id, "author_id", sess.ID, "year", article.YearID())

	return &SubmitResult{ID: id, Message: ArticleUpdatedMessage}, nil
}

// GetArticle returns a stored article to one of its authors or an admin.
func (s *ArticleService) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	sess := s.sessions.Load(ctx)
	if !sess.Authenticated() {
		return nil, ErrUnauthorized
	}
	return s.editableArticle(ctx, sess, strings.TrimSpace(id))
}

func (s *ArticleService) editableArticle(ctx context.Context, sess model.Session, id string) (*model.Article, error) {
	if id == "" {
		return nil, newError(KindInvalidRequest, "Article id is required")
	}

	article, err := s.repo.Article(ctx, id)
	if errors.Is(err, cms.ErrNotFound) {
		return nil, newError(KindNotFound, articleNotFound)
	}
	if err != nil {
		return nil, wrapError(KindInternal, "", fmt.Errorf("loading article %s: %w", id, err))
	}

	if !sess.IsAdmin && !slices.Contains(article.AuthorIDs(), sess.ID) {
		return nil, ErrForbidden
	}
	return article, nil
}

// prepare validates the submission and builds the article document without
// any asset references. It makes no repository or uploader calls.
func (s *ArticleService) prepare(sess model.Session, in ArticleInput) (*model.Article, error) {
	title := s.sanitizer.Text(in.Title)
	yearID := strings.TrimSpace(in.YearID)
	groupIDs := cleanIDs(in.WorkingGroupIDs)
	authorIDs := cleanIDs(in.AuthorIDs)
	if !slices.Contains(authorIDs, sess.ID) {
		authorIDs = append([]string{sess.ID}, authorIDs...)
	}

	if title == "" || yearID == "" || len(groupIDs) == 0 || len(authorIDs) == 0 {
		return nil, ErrMissingFields
	}

	prefix := s.sanitizer.Text(in.AuthorListPrefix)
	if prefix == "" {
		prefix = model.DefaultAuthorListPrefix
	}

	article := &model.Article{
		Type:             model.TypeArticle,
		Title:            title,
		Year:             model.Ref(yearID),
		WorkingGroups:    model.KeyedRefs(groupIDs),
		Authors:          model.KeyedRefs(authorIDs),
		AuthorListPrefix: prefix,
		Summary:          s.sanitizer.Text(in.Summary),
		HasBody:          in.HasBody,
		Verified:         false,
	}

	if !in.HasBody {
		return article, nil
	}

	slug := util.Slugify(title)
	if slug == "" {
		return nil, newError(KindInvalidRequest, "Title must contain letters or digits")
	}
	article.Slug = model.NewSlug(slug)

	article.ButtonText = s.sanitizer.Text(in.ButtonText)
	if article.ButtonText == "" {
		article.ButtonText = model.DefaultButtonText
	}

	body, err := s.prepareBody(in.Body)
	if err != nil {
		return nil, err
	}
	if err := checkBlockFiles(body, in.BlockFiles); err != nil {
		return nil, err
	}
	article.Body = body

	return article, nil
}

func (s *ArticleService) validateReferences(ctx context.Context, article *model.Article) error {
	return s.refs.ValidateReferences(ctx, article.YearID(), article.WorkingGroupIDs(), article.AuthorIDs())
}

// prepareBody assigns missing block keys and strips markup from every
// text field. Markdown text blocks are converted to portable text.
func (s *ArticleService) prepareBody(in model.Body) (model.Body, error) {
	body := make(model.Body, 0, len(in))
	seen := make(map[string]bool, len(in))

	for i, block := range in {
		if block == nil {
			return nil, newError(KindInvalidRequest, fmt.Sprintf("Body block %d is empty", i))
		}
		key := strings.TrimSpace(block.BlockKey())
		if key == "" {
			key = model.NewKey()
		}
		if key == MainImageKey {
			return nil, newError(KindInvalidRequest, fmt.Sprintf("Body block key %q is reserved for the main image", key))
		}
		if seen[key] {
			return nil, newError(KindInvalidRequest, fmt.Sprintf("Duplicate body block key %q", key))
		}
		seen[key] = true
		block.SetBlockKey(key)

		switch b := block.(type) {
		case *model.Subheading:
			b.Text = s.sanitizer.Text(b.Text)
		case *model.SectionTitle:
			b.Text = s.sanitizer.Text(b.Text)
		case *model.TextBlock:
			if b.Markdown != "" {
				b.Content = s.converter.Convert(b.Markdown)
				b.Markdown = ""
			}
			b.Content = s.sanitizer.PortableText(b.Content)
		case *model.List:
			b.Items = s.sanitizer.Lines(b.Items)
		case *model.ImageObject:
			b.Caption = s.sanitizer.Text(b.Caption)
		case *model.PosterObject:
		case *model.PDFFile:
			b.Caption = s.sanitizer.Text(b.Caption)
		case *model.ExternalLinksList:
			for j := range b.Links {
				link := &b.Links[j]
				link.ButtonText = s.sanitizer.Text(link.ButtonText)
				link.URL = strings.TrimSpace(link.URL)
				if !isHTTPURL(link.URL) {
					return nil, newError(KindInvalidRequest, fmt.Sprintf("Link %q in block %q must be an http or https URL", link.URL, key))
				}
				if link.Key == "" {
					link.Key = model.NewKey()
				}
			}
		default:
			return nil, newError(KindInvalidRequest, fmt.Sprintf("Unsupported body block type %q", block.BlockType()))
		}

		body = append(body, block)
	}

	return body, nil
}

// checkBlockFiles rejects uploads that do not match a file block of the body.
func checkBlockFiles(body model.Body, files map[string]*Upload) error {
	if len(files) == 0 {
		return nil
	}

	byKey := make(map[string]model.Block, len(body))
	for _, b := range body {
		byKey[b.BlockKey()] = b
	}

	for key := range files {
		block, ok := byKey[key]
		if !ok {
			return newError(KindInvalidRequest, fmt.Sprintf("No body block with key %q for uploaded file", key))
		}
		if _, ok := model.AsFileBlock(block); !ok {
			return newError(KindInvalidRequest, fmt.Sprintf("Body block %q does not accept files", key))
		}
	}
	return nil
}

// resolveAssets uploads the main image and the block files concurrently and
// stores the resulting references in article. Blocks without an upload keep
// the reference they were submitted with.
func (s *ArticleService) resolveAssets(ctx context.Context, article *model.Article, in ArticleInput) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var mainImage *model.Asset
	if in.MainImage != nil {
		g.Go(func() error {
			asset, err := s.uploader.Upload(gctx, model.AssetImage, in.MainImage.Reader, in.MainImage.Filename)
			if err != nil {
				return fmt.Errorf("uploading main image: %w", err)
			}
			mainImage = asset
			return nil
		})
	}

	type pending struct {
		block  model.FileBlock
		upload *Upload
	}
	var jobs []pending
	if article.HasBody {
		for _, b := range article.Body {
			fb, ok := model.AsFileBlock(b)
			if !ok {
				continue
			}
			if up := in.BlockFiles[fb.BlockKey()]; up != nil {
				jobs = append(jobs, pending{block: fb, upload: up})
			}
		}
	}

	assets := make([]*model.Asset, len(jobs))
	for i, job := range jobs {
		g.Go(func() error {
			asset, err := s.uploader.Upload(gctx, job.block.AssetKind(), job.upload.Reader, job.upload.Filename)
			if err != nil {
				return fmt.Errorf("uploading file for block %s: %w", job.block.BlockKey(), err)
			}
			assets[i] = asset
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("article asset upload failed", "title", article.Title, "error", err)
		return wrapError(KindInternal, "", err)
	}

	if mainImage != nil {
		article.MainImage = model.NewImageRef(mainImage.ID)
	}
	for i, job := range jobs {
		job.block.SetAsset(assets[i].ID)
	}
	return nil
}

// cleanIDs trims ids and drops empty and repeated ones, keeping order.
func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
