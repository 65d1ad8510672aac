package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"newsaggregator/internal/common/pagination"
	"newsaggregator/internal/domain/entity"
	"newsaggregator/internal/handler/http/respond"
	"newsaggregator/internal/store"
	"newsaggregator/internal/usecase/admin"
)

// pathID extracts and validates the {id} path value set by the ServeMux
// pattern routing this handler (e.g. "DELETE /feeds/{id}").
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

var errInvalidID = errors.New("invalid id")

// parseTimeParam reads an optional RFC 3339 timestamp query parameter,
// returning nil when the parameter is absent.
func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &t, nil
}

// AdminHandler exposes the admin surface: feed management, translation
// settings, and AI dedup settings, all thin delegations to admin.Service.
type AdminHandler struct {
	Service *admin.Service
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrBadRequest), errors.Is(err, entity.ErrValidationFailed), errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListFeeds handles GET /feeds.
func (h *AdminHandler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.Service.ListFeeds(r.Context())
	if err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, feeds)
}

// UpsertFeed handles POST /feeds.
func (h *AdminHandler) UpsertFeed(w http.ResponseWriter, r *http.Request) {
	var f entity.Feed
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	saved, err := h.Service.UpsertFeed(r.Context(), &f)
	if err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, saved)
}

// DeleteFeed handles DELETE /feeds/{id}.
func (h *AdminHandler) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Service.DeleteFeed(r.Context(), id); err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestFeed handles POST /feeds/test.
func (h *AdminHandler) TestFeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.Service.TestFeed(r.Context(), body.URL)
	if err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// FetchFeedOnce handles POST /feeds/{id}/fetch.
func (h *AdminHandler) FetchFeedOnce(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Service.FetchFeedOnce(r.Context(), id); err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// RecordClick handles POST /articles/{id}/click.
func (h *AdminHandler) RecordClick(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Service.RecordClick(r.Context(), id); err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListArticles handles GET /articles.
func (h *AdminHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.ParseQueryParams(r, pagination.DefaultConfig())
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	filter := store.ArticleListFilter{
		Keyword:  r.URL.Query().Get("keyword"),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if from, err := parseTimeParam(r, "from"); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	} else if from != nil {
		filter.From = from
	}
	if to, err := parseTimeParam(r, "to"); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	} else if to != nil {
		filter.To = to
	}
	articles, total, err := h.Service.ListArticles(r.Context(), filter)
	if err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, pagination.NewResponse(articles, pagination.Metadata{
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: pagination.CalculateTotalPages(total, params.Limit),
	}))
}

// ListFeatured handles GET /articles/featured.
func (h *AdminHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}
	articles, err := h.Service.ListFeatured(r.Context(), limit)
	if err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, articles)
}

// GetTranslationSettings handles GET /settings/translation.
func (h *AdminHandler) GetTranslationSettings(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Service.GetTranslationSettings(r.Context()))
}

// UpdateTranslationSettings handles PUT /settings/translation.
func (h *AdminHandler) UpdateTranslationSettings(w http.ResponseWriter, r *http.Request) {
	var input admin.UpdateTranslationSettingsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	settings, err := h.Service.UpdateTranslationSettings(r.Context(), input)
	if err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, settings)
}

// GetAIDedupSettings handles GET /settings/ai-dedup.
func (h *AdminHandler) GetAIDedupSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.GetAIDedupSettings(r.Context())
	if err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, settings)
}

// UpdateAIDedupSettings handles PUT /settings/ai-dedup.
func (h *AdminHandler) UpdateAIDedupSettings(w http.ResponseWriter, r *http.Request) {
	var input admin.UpdateAIDedupSettingsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}
	settings, err := h.Service.UpdateAIDedupSettings(r.Context(), input)
	if err != nil {
		respond.SafeError(w, statusForError(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, settings)
}

// TestModelConnectivity handles POST /settings/translation/test.
func (h *AdminHandler) TestModelConnectivity(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	respond.JSON(w, http.StatusOK, h.Service.TestModelConnectivity(r.Context(), provider))
}
