package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nnamdiokafor/linkqr/internal/errx"
	"github.com/nnamdiokafor/linkqr/internal/httpx"
	"github.com/nnamdiokafor/linkqr/internal/storex"
)

// RefreshCookieName is the HTTP-only cookie that carries the refresh token.
const RefreshCookieName = "refresh_token"

// LoginRequest represents the JSON request body for logging in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse represents the JSON body returned by login, register, and
// refresh. The refresh token never appears here; it travels in the cookie.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// WriteTokenPair sets the refresh cookie and writes the token response.
func WriteTokenPair(w http.ResponseWriter, status int, pair TokenPair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	httpx.WriteJSON(w, status, TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(accessTTL.Seconds()),
	})
}

// Handler provides the HTTP handlers for login and token refresh.
type Handler struct {
	db          storex.Beginner
	credentials *RepoFactory
	tokens      *TokenCodec
	logger      *slog.Logger
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	DB          storex.Beginner
	Credentials *RepoFactory
	Tokens      *TokenCodec
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
		credentials: cfg.Credentials,
		tokens:      cfg.Tokens,
		logger:      logger,
	}
}

// Login handles POST requests to exchange a username and password for a
// token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[LoginRequest](r)
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

	service := NewService(h.credentials.Bind(tx), h.tokens, nil)

	pair, err := service.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.handleAuthError(ctx, logger, w, err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to commit transaction", "error", err.Error())
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
		return
	}

	logger.InfoContext(ctx, "login succeeded", "username", req.Username)

	WriteTokenPair(w, http.StatusOK, pair, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
}

// Refresh handles POST requests to rotate the token pair using the refresh
// cookie.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	var refreshToken string
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		refreshToken = cookie.Value
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

	service := NewService(h.credentials.Bind(tx), h.tokens, nil)

	pair, err := service.Refresh(ctx, refreshToken)
	if err != nil {
		h.handleAuthError(ctx, logger, w, err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to commit transaction", "error", err.Error())
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
		return
	}

	logger.InfoContext(ctx, "token pair refreshed")

	WriteTokenPair(w, http.StatusOK, pair, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
}

// handleAuthError logs a failed auth request and writes its response.
func (h *Handler) handleAuthError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	if httpx.ErrorKindToStatus(kind) >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "auth request failed", logAttrs...)
	} else {
		logger.WarnContext(ctx, "auth request rejected", logAttrs...)
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
