package shortlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nnamdiokafor/linkqr/internal/auth"
	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/httpx"
	"github.com/nnamdiokafor/linkqr/internal/storex"
)

// LinkRequest represents the JSON request body for creating or updating a
// link.
type LinkRequest struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// LinkResponse represents the JSON body describing a short link.
type LinkResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Link     string    `json:"link"`
	Slug     string    `json:"slug"`
	ShortURL string    `json:"short_url"`
}

// AdminListResponse represents the JSON body of the admin listing.
type AdminListResponse struct {
	Count int64          `json:"count"`
	Links []LinkResponse `json:"links"`
}

// Handler provides the HTTP handlers for short link management and the
// public redirect.
type Handler struct {
	db      storex.Beginner
	links   *RepoFactory
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	DB      storex.Beginner
	Links   *RepoFactory
	Logger  *slog.Logger
	BaseURL string // Base URL for constructing short URLs (e.g., "https://lnkqr.co")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		db:      cfg.DB,
		links:   cfg.Links,
		logger:  logger,
		baseURL: cfg.BaseURL,
	}
}

// Create handles POST requests to create a new short link for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		h.handleError(ctx, logger, w, errx.E("shortlink.handler.Create", errx.Unauthorized, errors.New("no identity on request")))
		return
	}

	req, err := httpx.DecodeJSON[LinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	tx, ok := h.begin(ctx, logger, w)
	if !ok {
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	service := NewService(h.links.Bind(tx), nil)

	link, err := service.Create(ctx, identity.AccountID, req.Name, req.Link)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	if !h.commit(ctx, logger, w, tx) {
		return
	}

	logger.InfoContext(ctx, "link created",
		"link_id", link.ID,
		"slug", link.Slug,
		"account_id", identity.AccountID,
	)

	httpx.WriteJSON(w, http.StatusCreated, h.newLinkResponse(link))
}

// List handles GET requests for every link the caller owns.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		h.handleError(ctx, logger, w, errx.E("shortlink.handler.List", errx.Unauthorized, errors.New("no identity on request")))
		return
	}

	tx, ok := h.begin(ctx, logger, w)
	if !ok {
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	service := NewService(h.links.Bind(tx), nil)

	links, err := service.ListByOwner(ctx, identity.AccountID)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	if !h.commit(ctx, logger, w, tx) {
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.newLinkResponses(links))
}

// Get handles GET requests for a single owned link.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		h.handleError(ctx, logger, w, errx.E("shortlink.handler.Get", errx.Unauthorized, errors.New("no identity on request")))
		return
	}

	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		logger.WarnContext(ctx, "invalid path parameter", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	tx, ok := h.begin(ctx, logger, w)
	if !ok {
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	service := NewService(h.links.Bind(tx), nil)

	link, err := service.Get(ctx, identity.AccountID, id)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	if !h.commit(ctx, logger, w, tx) {
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.newLinkResponse(link))
}

// Update handles PUT requests to replace the name and target of an owned
// link.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		h.handleError(ctx, logger, w, errx.E("shortlink.handler.Update", errx.Unauthorized, errors.New("no identity on request")))
		return
	}

	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		logger.WarnContext(ctx, "invalid path parameter", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	req, err := httpx.DecodeJSON[LinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	tx, ok := h.begin(ctx, logger, w)
	if !ok {
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	service := NewService(h.links.Bind(tx), nil)

	link, err := service.Update(ctx, identity.AccountID, id, req.Name, req.Link)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	if !h.commit(ctx, logger, w, tx) {
		return
	}

	logger.InfoContext(ctx, "link updated", "link_id", link.ID, "account_id", identity.AccountID)

	httpx.WriteJSON(w, http.StatusOK, h.newLinkResponse(link))
}

// Delete handles DELETE requests to remove an owned link.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		h.handleError(ctx, logger, w, errx.E("shortlink.handler.Delete", errx.Unauthorized, errors.New("no identity on request")))
		return
	}

	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		logger.WarnContext(ctx, "invalid path parameter", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	tx, ok := h.begin(ctx, logger, w)
	if !ok {
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	service := NewService(h.links.Bind(tx), nil)

	if err := service.Delete(ctx, identity.AccountID, id); err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	if !h.commit(ctx, logger, w, tx) {
		return
	}

	logger.InfoContext(ctx, "link deleted", "link_id", id, "account_id", identity.AccountID)

	w.WriteHeader(http.StatusNoContent)
}

// AdminList handles GET requests for the full listing. The admin gate sits
// in the middleware; this handler only reads.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	tx, ok := h.begin(ctx, logger, w)
	if !ok {
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	service := NewService(h.links.Bind(tx), nil)

	links, err := service.ListAll(ctx)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	count, err := service.CountAll(ctx)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	if !h.commit(ctx, logger, w, tx) {
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AdminListResponse{
		Count: count,
		Links: h.newLinkResponses(links),
	})
}

// Resolve handles GET requests on a public slug and redirects to its
// target.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	slug := r.PathValue("slug")
	if err := validateSlugFormat(slug); err != nil {
		logger.WarnContext(ctx, "invalid slug format", "slug", slug, "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	tx, ok := h.begin(ctx, logger, w)
	if !ok {
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	service := NewService(h.links.Bind(tx), nil)

	target, err := service.Resolve(ctx, slug)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	if !h.commit(ctx, logger, w, tx) {
		return
	}

	logger.InfoContext(ctx, "slug resolved",
		"slug", slug,
		"target", target,
		"user_agent", r.UserAgent(),
		"referer", r.Referer(),
	)

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) begin(ctx context.Context, logger *slog.Logger, w http.ResponseWriter) (pgx.Tx, bool) {
	tx, err := h.db.Begin(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to begin transaction", "error", err.Error())
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "service unavailable", nil)
		return nil, false
	}
	return tx, true
}

func (h *Handler) commit(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, tx pgx.Tx) bool {
	if err := tx.Commit(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to commit transaction", "error", err.Error())
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
		return false
	}
	return true
}

// handleError logs a failed link request and writes its response.
func (h *Handler) handleError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	if httpx.ErrorKindToStatus(kind) >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "link request failed", logAttrs...)
	} else {
		logger.WarnContext(ctx, "link request rejected", logAttrs...)
	}

	httpx.WriteErrx(w, err)
}

func (h *Handler) newLinkResponse(link ShortLink) LinkResponse {
	return LinkResponse{
		ID:       link.ID,
		Name:     link.Name,
		Link:     link.Link,
		Slug:     link.Slug,
		ShortURL: fmt.Sprintf("%s/r/%s", h.baseURL, link.Slug),
	}
}

func (h *Handler) newLinkResponses(links []ShortLink) []LinkResponse {
	responses := make([]LinkResponse, 0, len(links))
	for _, link := range links {
		responses = append(responses, h.newLinkResponse(link))
	}
	return responses
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// validateSlugFormat performs basic slug format validation for the HTTP
// layer, ahead of the service lookup.
func validateSlugFormat(slug string) error {
	if slug == "" {
		return errors.New("slug is required")
	}
	if len(slug) > MaxSlugLength {
		return errors.New("invalid link")
	}
	return nil
}
