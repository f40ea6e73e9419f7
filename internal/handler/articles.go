// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/urfield-go/internal/middleware"
	"github.com/olegiv/urfield-go/internal/model"
	"github.com/olegiv/urfield-go/internal/service"
)

// mainImageField is the form field of the article's main image. Every
// other file part is a block file keyed by the block's _key.
const mainImageField = service.MainImageKey

// ArticlesHandler handles article submission and lookup.
type ArticlesHandler struct {
	articles  *service.ArticleService
	auth      *service.AuthService
	events    *service.EventService
	maxUpload int64
	logger    *slog.Logger
}

// NewArticlesHandler creates a new ArticlesHandler.
func NewArticlesHandler(articles *service.ArticleService, auth *service.AuthService, events *service.EventService, maxUpload int64, logger *slog.Logger) *ArticlesHandler {
	return &ArticlesHandler{
		articles:  articles,
		auth:      auth,
		events:    events,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Submit handles POST /articles. It creates an article, or replaces the one
// named by the articleId field.
func (h *ArticlesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	// Authentication comes before the payload is read.
	if _, err := h.auth.CurrentSession(r.Context(), ""); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	form, err := parseMultipart(w, r, h.maxUpload)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer form.Close()

	in, err := h.articleInput(form)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	result, err := h.articles.Submit(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	status, message := http.StatusOK, "Article updated"
	if result.Created {
		status, message = http.StatusCreated, "Article created"
	}
	if h.events != nil {
		sess, _ := h.auth.CurrentSession(r.Context(), "")
		_ = h.events.LogArticleEvent(r.Context(), model.EventLevelInfo, message, sess.ID,
			middleware.ClientIP(r), middleware.RequestURL(r),
			map[string]any{"article_id": result.ID, "title": in.Title, "year_id": in.YearID})
	}

	writeJSONSuccess(w, status, map[string]any{
		"id":      result.ID,
		"message": result.Message,
	})
}

func (h *ArticlesHandler) articleInput(form *multipartForm) (service.ArticleInput, error) {
	in := service.ArticleInput{
		ArticleID:        form.value("articleId"),
		Title:            form.value("title"),
		YearID:           form.value("yearId"),
		AuthorListPrefix: form.value("authorListPrefix"),
		Summary:          form.value("summary"),
		HasBody:          form.bool("hasBody"),
		ButtonText:       form.value("buttonText"),
	}

	var err error
	if in.WorkingGroupIDs, err = form.ids("workingGroups"); err != nil {
		return in, err
	}
	if in.AuthorIDs, err = form.ids("authors"); err != nil {
		return in, err
	}

	if raw := form.value("body"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Body); err != nil {
			var unknown *model.UnknownBlockTypeError
			if errors.As(err, &unknown) {
				return in, &service.Error{Kind: service.KindInvalidRequest, Message: unknown.Error(), Err: err}
			}
			return in, &service.Error{Kind: service.KindInvalidRequest, Message: "Invalid body", Err: err}
		}
	}

	if in.MainImage, err = form.upload(mainImageField); err != nil {
		return in, err
	}
	if in.BlockFiles, err = form.uploadsExcept(mainImageField); err != nil {
		return in, err
	}
	return in, nil
}

// Get handles GET /articles/{id}.
func (h *ArticlesHandler) Get(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.GetArticle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}
