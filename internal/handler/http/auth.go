package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/auth"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/domain"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/service"
	apperrors "github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/errors"
	"github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/validator"
)

// AuthHandler handles HTTP requests for the auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	jwt     *auth.JWTManager
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, jwt: jwtManager, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the JSON request body for requesting a reset mail.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the JSON request body for completing a reset.
// The match with confirmPassword is checked in the service so the mismatch
// message stays uniform with the missing-field case.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// --- Handlers ---

// Register handles POST /api/v1/user/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Message: "invalid request body",
			Success: false,
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{
		Message: "User registered successfully",
		Success: true,
		User:    domain.NewSummary(user),
	})
}

// Verify handles GET /api/v1/user/verify/{token}
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.service.Verify(r.Context(), token); err != nil {
		h.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Message: "User verified successfully.",
		Success: true,
	})
}

// Login handles POST /api/v1/user/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Message: "invalid request body",
			Success: false,
		})
		return
	}

	input := service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}

	user, pair, err := h.service.Login(r.Context(), input)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)

	writeJSON(w, http.StatusCreated, response{
		Message:      "User logged in successfully",
		Success:      true,
		User:         domain.NewSummary(user),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout handles GET /api/v1/user/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusBadRequest, response{
			Message: "user not logged in",
			Success: false,
		})
		return
	}

	if err := h.service.Logout(r.Context(), identity.UserID); err != nil {
		h.writeAppError(w, r, err)
		return
	}

	h.clearAuthCookies(w)

	writeJSON(w, http.StatusOK, response{
		Message: "logged out successfully",
		Success: true,
	})
}

// Profile handles GET /api/v1/user/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusBadRequest, response{
			Message: "user not logged in",
			Success: false,
		})
		return
	}

	profile, err := h.service.Profile(r.Context(), identity.UserID)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Message: "User found",
		Success: true,
		User:    profile,
	})
}

// ForgotPassword handles POST /api/v1/user/forgotPassword
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Message: "invalid request body",
			Success: false,
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Message: "Password reset mail sent successfully",
		Success: true,
	})
}

// ResetPassword handles POST /api/v1/user/resetPassword/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Message: "invalid request body",
			Success: false,
		})
		return
	}

	if err := h.service.ResetPassword(r.Context(), token, req.Password, req.ConfirmPassword); err != nil {
		h.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Message: "password reset successfully",
		Success: true,
	})
}

// --- Cookies ---

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, pair *domain.TokenPair) {
	setTokenCookies(w, pair, h.jwt)
}

func (h *AuthHandler) clearAuthCookies(w http.ResponseWriter) {
	clearTokenCookie(w, accessTokenCookie)
	clearTokenCookie(w, refreshTokenCookie)
}

func setTokenCookies(w http.ResponseWriter, pair *domain.TokenPair, jwtManager *auth.JWTManager) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(jwtManager.AccessExpiry().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(jwtManager.RefreshExpiry().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// --- Shared response helpers ---

// response is the envelope every endpoint answers with.
type response struct {
	Message      string            `json:"message"`
	Success      bool              `json:"success"`
	User         any               `json:"user,omitempty"`
	Token        string            `json:"token,omitempty"`
	RefreshToken string            `json:"refreshToken,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

func (h *AuthHandler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, h.logger)
}

func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "request failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
		}
		writeJSON(w, appErr.Status, response{
			Message: appErr.Message,
			Success: false,
		})
		return
	}

	logger.ErrorContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, response{
		Message: "Internal server error",
		Success: false,
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Message: "All fields are required",
			Success: false,
			Fields:  valErr.Fields(),
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Message: err.Error(),
		Success: false,
	})
}
