package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	apperrors "gouauth/internal/errors"
	custommw "gouauth/internal/middleware"
	"gouauth/pkg/contracts/domain"
)

// AuthService is the surface the handler needs from the auth layer.
type AuthService interface {
	Login(ctx context.Context, req *domain.LoginRequest, ipAddress string) (*domain.AuthData, error)
	Register(ctx context.Context, req *domain.RegisterRequest, ipAddress string) (*domain.AuthData, error)
	KeyLogin(ctx context.Context, req *domain.KeyLoginRequest, ipAddress string) (*domain.AuthData, error)
	Validate(ctx context.Context, req *domain.ValidateSessionRequest) (*domain.SessionValidation, error)
	Logout(ctx context.Context, token string) (*domain.LogoutResponse, error)
}

// AuthHandler handles the /api/auth endpoints.
type AuthHandler struct {
	service  AuthService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(service AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With(slog.String("handler", "auth")),
	}
}

// Routes returns a chi router for the auth endpoints.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/login", h.Login)
	r.Post("/register", h.Register)
	r.Post("/key", h.KeyLogin)
	r.Post("/validate", h.ValidateSession)
	r.Post("/logout", h.Logout)

	return r
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("auth-handler").Start(r.Context(), "auth.login")
	defer span.End()

	var req domain.LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, r, apperrors.ValidationFailedWithDetails(validationDetails(err)))
		return
	}

	span.SetAttributes(attribute.String("app_id", req.AppID))

	data, err := h.service.Login(ctx, &req, clientIP(r))
	if err != nil {
		custommw.ObserveLogin("password", apperrors.CodeOf(err))
		respondAuthError(w, r, err)
		return
	}

	custommw.ObserveLogin("password", "success")
	respondData(w, r, data)
}

// Register handles POST /api/auth/register. A fresh account is created and
// immediately logged in, so the response mirrors Login.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("auth-handler").Start(r.Context(), "auth.register")
	defer span.End()

	var req domain.RegisterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, r, apperrors.ValidationFailedWithDetails(validationDetails(err)))
		return
	}

	span.SetAttributes(attribute.String("app_id", req.AppID))

	data, err := h.service.Register(ctx, &req, clientIP(r))
	if err != nil {
		custommw.ObserveLogin("register", apperrors.CodeOf(err))
		respondAuthError(w, r, err)
		return
	}

	custommw.ObserveLogin("register", "success")
	respondCreated(w, r, data)
}

// KeyLogin handles POST /api/auth/key.
func (h *AuthHandler) KeyLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("auth-handler").Start(r.Context(), "auth.key_login")
	defer span.End()

	var req domain.KeyLoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, r, apperrors.ValidationFailedWithDetails(validationDetails(err)))
		return
	}

	span.SetAttributes(attribute.String("app_id", req.AppID))

	data, err := h.service.KeyLogin(ctx, &req, clientIP(r))
	if err != nil {
		custommw.ObserveLogin("key", apperrors.CodeOf(err))
		respondAuthError(w, r, err)
		return
	}

	custommw.ObserveLogin("key", "success")
	respondData(w, r, data)
}

// ValidateSession handles POST /api/auth/validate. A failed check is a 200
// with valid=false; the cause never crosses the wire.
func (h *AuthHandler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("auth-handler").Start(r.Context(), "auth.validate")
	defer span.End()

	var req domain.ValidateSessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, r, apperrors.ValidationFailedWithDetails(validationDetails(err)))
		return
	}

	validation, err := h.service.Validate(ctx, &req)
	if err != nil {
		h.logger.ErrorContext(ctx, "session validation unavailable",
			slog.String("error", err.Error()))
		respondError(w, r, apperrors.ErrServiceUnavailable)
		return
	}

	respondData(w, r, validation)
}

// Logout handles POST /api/auth/logout. The token travels as a Bearer header
// and the call never fails for auth reasons.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("auth-handler").Start(r.Context(), "auth.logout")
	defer span.End()

	token := bearerToken(r)
	if token == "" {
		respondError(w, r, apperrors.ErrUnauthorized)
		return
	}

	resp, err := h.service.Logout(ctx, token)
	if err != nil {
		h.logger.ErrorContext(ctx, "logout failed server-side",
			slog.String("error", err.Error()))
		respondError(w, r, apperrors.ErrServiceUnavailable)
		return
	}

	respondData(w, r, resp)
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// clientIP returns the requester address, honoring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// validationDetails flattens validator errors into field messages.
func validationDetails(err error) []string {
	var details []string
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range errs {
			details = append(details, fieldErr.Field()+" failed "+fieldErr.Tag()+" validation")
		}
		return details
	}
	return []string{err.Error()}
}
