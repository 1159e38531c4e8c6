package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/openlms/edflex-connector/internal/edflex"
	"github.com/openlms/edflex-connector/internal/engine"
	"github.com/openlms/edflex-connector/internal/storage"
)

// handleHealth reports process liveness.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness: the database must answer a ping.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.records.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// settingsResponse never carries the client secret back out.
type settingsResponse struct {
	BaseURL             string `json:"base_url"`
	ClientID            string `json:"client_id"`
	HasClientSecret     bool   `json:"has_client_secret"`
	CatalogID           string `json:"catalog_id"`
	SyncIntervalSeconds int64  `json:"sync_interval_seconds"`
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.records.LoadSettings(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "no settings saved")
		return
	}
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to load settings")
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		BaseURL:             settings.BaseURL,
		ClientID:            settings.ClientID,
		HasClientSecret:     settings.ClientSecret != "",
		CatalogID:           settings.CatalogID,
		SyncIntervalSeconds: int64(settings.SyncInterval / time.Second),
	})
}

type settingsRequest struct {
	BaseURL             string `json:"base_url"`
	ClientID            string `json:"client_id"`
	ClientSecret        string `json:"client_secret"`
	CatalogID           string `json:"catalog_id"`
	SyncIntervalSeconds int64  `json:"sync_interval_seconds"`
}

// handlePutSettings persists new connector settings and notifies the
// scheduling trigger, which purges the token cache and re-evaluates the
// periodic sync job against the new credentials.
func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "malformed JSON body")
		return
	}

	if req.BaseURL == "" || req.ClientID == "" || req.ClientSecret == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"base_url, client_id and client_secret are required")
		return
	}

	interval := time.Duration(req.SyncIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	err := h.records.SaveSettings(r.Context(), &storage.Settings{
		BaseURL:      req.BaseURL,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		CatalogID:    req.CatalogID,
		SyncInterval: interval,
	})
	if err != nil {
		h.logger.Error("failed to save settings", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to save settings")
		return
	}

	h.trigger.SettingsChanged(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "saved",
		"scheduled": h.trigger.Scheduled(),
	})
}

// handleSync runs one reconciliation pass synchronously.
func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if err := h.trigger.RunSync(r.Context()); err != nil {
		h.logger.Error("manual sync failed", "error", err)
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type contentItem struct {
	ExternalID         string `json:"external_id"`
	Title              string `json:"title"`
	Type               string `json:"type"`
	Language           string `json:"language"`
	Difficulty         string `json:"difficulty"`
	Duration           string `json:"duration"`
	Author             string `json:"author"`
	CanonicalURL       string `json:"url"`
	PackageDownloadURL string `json:"package_url"`
	Description        string `json:"description"`
	Imported           bool   `json:"imported"`
}

// handleContents proxies a catalog browse request. When course_id is given,
// items already imported into that course are flagged.
func (h *Handler) handleContents(w http.ResponseWriter, r *http.Request) {
	client, err := h.provider(r.Context())
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	q := r.URL.Query()
	filters := edflex.ContentFilters{
		Query:      q.Get("q"),
		Type:       q.Get("type"),
		Language:   q.Get("language"),
		CategoryID: q.Get("category_id"),
	}

	page := intParam(q.Get("page"), 1)
	limit := intParam(q.Get("limit"), edflex.DefaultPageSize)

	result, err := client.GetContents(r.Context(), filters, page, limit)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	imported := map[string]struct{}{}
	if courseParam := q.Get("course_id"); courseParam != "" {
		courseID, err := strconv.ParseInt(courseParam, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "course_id must be an integer")
			return
		}
		imported, err = h.engine.ExternalIDsInCourse(r.Context(), courseID)
		if err != nil {
			h.logger.Error("failed to load imported ids", "error", err)
			WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to load imported ids")
			return
		}
	}

	items := make([]contentItem, 0, len(result.Data))
	for _, c := range result.Data {
		_, isImported := imported[c.ExternalID]
		items = append(items, contentItem{
			ExternalID:         c.ExternalID,
			Title:              c.Title,
			Type:               c.Type,
			Language:           c.Language,
			Difficulty:         c.Difficulty,
			Duration:           c.Duration,
			Author:             c.Author,
			CanonicalURL:       c.CanonicalURL,
			PackageDownloadURL: c.PackageDownloadURL,
			Description:        c.Description,
			Imported:           isImported,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"links": map[string]string{"next": result.Links.Next},
	})
}

// handleCatalogs lists the available catalogs, cached for an hour unless
// fresh=1 bypasses the cache.
func (h *Handler) handleCatalogs(w http.ResponseWriter, r *http.Request) {
	client, err := h.provider(r.Context())
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	ttl := catalogCacheTTL
	if r.URL.Query().Get("fresh") == "1" {
		ttl = 0
	}

	catalogs, err := client.GetCatalogs(r.Context(), ttl)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": catalogs})
}

type importRequest struct {
	CourseID   int64    `json:"course_id"`
	Section    int      `json:"section"`
	ContentIDs []string `json:"content_ids"`
}

type importResultItem struct {
	ExternalID string `json:"external_id"`
	ModuleID   int64  `json:"module_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// handleImport fetches the requested contents and imports each into the
// target course. Items fail independently; the response reports per-item
// outcomes.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "malformed JSON body")
		return
	}
	if req.CourseID == 0 || len(req.ContentIDs) == 0 {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "course_id and content_ids are required")
		return
	}

	client, err := h.provider(r.Context())
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	var contents []edflex.Content
	for content, err := range client.ContentsByIDs(r.Context(), req.ContentIDs) {
		if err != nil {
			h.writeUpstreamError(w, err)
			return
		}
		contents = append(contents, content)
	}

	results := h.engine.ImportContents(r.Context(), contents, req.CourseID, req.Section)

	items := make([]importResultItem, 0, len(results))
	for _, res := range results {
		item := importResultItem{ExternalID: res.ExternalID, ModuleID: res.ModuleID}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

type deleteContentsRequest struct {
	ContentIDs []string `json:"content_ids"`
}

// handleDeleteContents removes the modules backing the given external ids.
func (h *Handler) handleDeleteContents(w http.ResponseWriter, r *http.Request) {
	var req deleteContentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "malformed JSON body")
		return
	}
	if len(req.ContentIDs) == 0 {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content_ids is required")
		return
	}

	if err := h.engine.DeleteByContentIDs(r.Context(), req.ContentIDs); err != nil {
		h.logger.Error("failed to delete contents", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to delete contents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// writeUpstreamError maps client and engine errors onto ops API responses.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *edflex.APIError

	switch {
	case errors.Is(err, edflex.ErrConfig):
		WriteError(w, http.StatusServiceUnavailable, ErrCodeUpstreamError, "connector is not configured")
	case errors.Is(err, edflex.ErrInvalidContentID),
		errors.Is(err, edflex.ErrInvalidURL),
		errors.Is(err, engine.ErrInvalidCourseID),
		errors.Is(err, engine.ErrMissingPackageURL):
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.As(err, &apiErr), errors.Is(err, edflex.ErrAuth), errors.Is(err, edflex.ErrInvalidResponse):
		WriteError(w, http.StatusBadGateway, ErrCodeUpstreamError, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
