package account

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nnamdiokafor/linkqr/internal/auth"
	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/httpx"
	"github.com/nnamdiokafor/linkqr/internal/storex"
)

// RegisterRequest represents the JSON request body for creating an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MeResponse represents the JSON body describing the authenticated account.
type MeResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Handler provides the HTTP handlers for registration and identity lookup.
type Handler struct {
	db          storex.Beginner
	accounts    *RepoFactory
	credentials *auth.RepoFactory
	tokens      *auth.TokenCodec
	logger      *slog.Logger
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	DB          storex.Beginner
	Accounts    *RepoFactory
	Credentials *auth.RepoFactory
	Tokens      *auth.TokenCodec
	Logger      *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		db:          cfg.DB,
		accounts:    cfg.Accounts,
		credentials: cfg.Credentials,
		tokens:      cfg.Tokens,
		logger:      logger,
	}
}

// Register handles POST requests to create an account. The new user is
// signed in immediately; the response mirrors a successful login.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[RegisterRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	tx, err := h.db.Begin(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to begin transaction", "error", err.Error())
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "service unavailable", nil)
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	service := h.bindService(tx)

	account, pair, err := service.Register(ctx, req.Username, req.Password)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to commit transaction", "error", err.Error())
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
		return
	}

	logger.InfoContext(ctx, "account registered", "account_id", account.ID, "username", account.Username)

	auth.WriteTokenPair(w, http.StatusCreated, pair, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
}

// Me handles GET requests for the authenticated account's own record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	identity, ok := auth.IdentityFrom(ctx)
	if !ok {
		h.handleError(ctx, logger, w, errx.E("account.handler.Me", errx.Unauthorized, errors.New("no identity on request")))
		return
	}

	tx, err := h.db.Begin(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to begin transaction", "error", err.Error())
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "service unavailable", nil)
		return
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	service := h.bindService(tx)

	account, err := service.GetByID(ctx, identity.AccountID)
	if err != nil {
		h.handleError(ctx, logger, w, err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to commit transaction", "error", err.Error())
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MeResponse{ID: account.ID, Username: account.Username})
}

// bindService assembles the account service and its auth collaborators on
// one transaction.
func (h *Handler) bindService(tx storex.Querier) Service {
	credentials := h.credentials.Bind(tx)
	authService := auth.NewService(credentials, h.tokens, nil)
	return NewService(h.accounts.Bind(tx), credentials, authService, nil)
}

// handleError logs a failed account request and writes its response.
func (h *Handler) handleError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	if httpx.ErrorKindToStatus(kind) >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "account request failed", logAttrs...)
	} else {
		logger.WarnContext(ctx, "account request rejected", logAttrs...)
	}

	httpx.WriteErrx(w, err)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}
