package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stayloop/booking-api/internal/httputil"
	"github.com/stayloop/booking-api/internal/logging"
	"github.com/stayloop/booking-api/internal/ratelimit"
	"github.com/stayloop/booking-api/internal/user"
)

// Handler contains HTTP handlers for the authentication endpoints.
// Login and registration are the same handler for all three roles; the
// role is bound when the route is mounted.
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the registration request body.
// Address is not used by the admin flow.
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UpdateProfileRequest represents the profile update request body
type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// VerifyCodeRequest represents the code verification request body
type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// TokenResponse represents a successful login or registration
type TokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// UserResponse wraps a user in API responses
type UserResponse struct {
	User *user.User `json:"user"`
}

// Login handles login for the mounted role
// @Summary      Log in
// @Description  Authenticate with email and password and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} TokenResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing fields"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /{role}/login [post]
func (h *Handler) Login(role user.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		ip := getClientIP(r)
		exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "login")
		if err != nil {
			logger.Error("failed to check IP rate limit", "error", err.Error())
		} else if exceeded {
			logger.Warn("IP rate limit exceeded for login", "ip", ip)
			respondError(w, "Too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("invalid login request body", "error", err.Error())
			respondError(w, "Invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}

		logger = logger.WithFields(map[string]any{"email": req.Email, "role": role.String()})

		if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "login"); err != nil {
			logger.Error("failed to record IP request", "error", err.Error())
		}

		_, token, err := h.service.Login(r.Context(), role, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, ErrFieldsRequired) {
				logger.Warn("login failed: missing fields")
				respondError(w, "Email and password are required", httputil.CodeValidationError, http.StatusBadRequest)
				return
			}
			if errors.Is(err, ErrInvalidCredentials) {
				logger.Warn("login failed: invalid credentials")
				respondError(w, "Invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
				return
			}
			logger.Error("login failed: internal error", "error", err.Error())
			respondError(w, "Server error", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}

		logger.Info("user logged in successfully")

		respondJSON(w, TokenResponse{Message: "Login successful", Token: token}, http.StatusOK)
	}
}

// Register handles registration for the mounted role
// @Summary      Register a new account
// @Description  Create an account for the role of the mounted route and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration fields"
// @Success      201 {object} TokenResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing fields or password mismatch"
// @Failure      409 {object} httputil.ErrorResponse "Email already registered"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /{role}/register [post]
func (h *Handler) Register(role user.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		ip := getClientIP(r)
		exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "register")
		if err != nil {
			logger.Error("failed to check IP rate limit", "error", err.Error())
		} else if exceeded {
			logger.Warn("IP rate limit exceeded for register", "ip", ip)
			respondError(w, "Too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
			return
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("invalid registration request body", "error", err.Error())
			respondError(w, "Invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}

		logger = logger.WithFields(map[string]any{"email": req.Email, "role": role.String()})

		if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "register"); err != nil {
			logger.Error("failed to record IP request", "error", err.Error())
		}

		newUser, token, err := h.service.Register(r.Context(), role, RegisterInput{
			FullName:        req.Name,
			Email:           req.Email,
			Phone:           req.Phone,
			Address:         req.Address,
			Password:        req.Password,
			ConfirmPassword: req.ConfirmPassword,
		})
		if err != nil {
			if errors.Is(err, ErrFieldsRequired) {
				logger.Warn("registration failed: missing fields")
				respondError(w, "All fields are required", httputil.CodeValidationError, http.StatusBadRequest)
				return
			}
			if errors.Is(err, ErrPasswordMismatch) {
				logger.Warn("registration failed: password mismatch")
				respondError(w, "Passwords do not match", httputil.CodePasswordMismatch, http.StatusBadRequest)
				return
			}
			if errors.Is(err, user.ErrDuplicateEmail) {
				logger.Warn("registration failed: email already registered")
				respondError(w, "Email already registered", httputil.CodeDuplicateEmail, http.StatusConflict)
				return
			}
			logger.Error("registration failed: internal error", "error", err.Error())
			respondError(w, "Server error", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}

		logger.Info("user registered successfully", "user_id", newUser.ID)

		respondJSON(w, TokenResponse{Message: "Registration successful", Token: token}, http.StatusCreated)
	}
}

// Logout handles logout
// @Summary      Log out
// @Description  Delete the session row for the presented token. The token itself stays valid unless session checking is enabled.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse "Missing token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /{role}/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token, ok := GetTokenFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	removed, err := h.service.Logout(r.Context(), token)
	if err != nil {
		logger.Error("logout failed: internal error", "error", err.Error())
		respondError(w, "Server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	// Zero removed rows just means the token was never recorded or the
	// session is already gone
	logger.Info("user logged out", "sessions_removed", removed)

	respondJSON(w, map[string]string{"message": "Logout successful"}, http.StatusOK)
}

// Me returns the authenticated principal
// @Summary      Current user
// @Description  Return the profile of the authenticated user, password digest stripped
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} httputil.ErrorResponse "Missing token"
// @Failure      403 {object} httputil.ErrorResponse "Invalid token"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /{role}/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	u, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, "User not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to load current user", "error", err.Error())
		respondError(w, "Server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	respondJSON(w, UserResponse{User: u}, http.StatusOK)
}

// UpdateMe updates the authenticated principal's profile
// @Summary      Update profile
// @Description  Change name, phone, email or password of the authenticated user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      400 {object} httputil.ErrorResponse "No fields to update"
// @Failure      409 {object} httputil.ErrorResponse "Email already registered"
// @Router       /{role}/me [put]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile update body", "error", err.Error())
		respondError(w, "Invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), userID, UpdateProfileInput{
		FullName: req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, ErrFieldsRequired) {
			respondError(w, "Nothing to update", httputil.CodeValidationError, http.StatusBadRequest)
			return
		}
		if errors.Is(err, user.ErrDuplicateEmail) {
			respondError(w, "Email already registered", httputil.CodeDuplicateEmail, http.StatusConflict)
			return
		}
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, "User not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("profile update failed: internal error", "error", err.Error())
		respondError(w, "Server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("profile updated", "user_id", userID)

	respondJSON(w, UserResponse{User: updated}, http.StatusOK)
}

// SendCode issues and dispatches a verification code
// @Summary      Send verification code
// @Description  Generate a one-time code for the authenticated user and email it
// @Tags         otp
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse "Missing token"
// @Failure      500 {object} httputil.ErrorResponse "Delivery failure"
// @Router       /otp/send-code [get]
func (h *Handler) SendCode(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}
	claims, _ := GetClaimsFromContext(r.Context())

	if err := h.service.SendVerificationCode(r.Context(), userID, claims.Email); err != nil {
		logger.Error("failed to send verification code", "error", err.Error())
		respondError(w, "Failed to send code", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("verification code sent", "user_id", userID)

	respondJSON(w, map[string]string{"message": "Verification code sent."}, http.StatusOK)
}

// VerifyCode checks a submitted verification code
// @Summary      Verify code
// @Description  Validate the one-time code and mark the user's email verified
// @Tags         otp
// @Produce      json
// @Security     BearerAuth
// @Param        code query string false "Verification code (body fallback accepted)"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Missing, invalid or expired code"
// @Failure      401 {object} httputil.ErrorResponse "Missing token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /otp/verify-code [get]
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	// Query parameter first, JSON body as fallback
	code := r.URL.Query().Get("code")
	if code == "" {
		var req VerifyCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			code = req.Code
		}
	}
	if code == "" {
		respondError(w, "Code is required", httputil.CodeCodeRequired, http.StatusBadRequest)
		return
	}

	if err := h.service.VerifyCode(r.Context(), userID, code); err != nil {
		if errors.Is(err, ErrInvalidOrExpiredCode) {
			logger.Warn("verification failed: invalid or expired code", "user_id", userID)
			respondError(w, "Invalid or expired code", httputil.CodeInvalidCode, http.StatusBadRequest)
			return
		}
		logger.Error("verification failed: internal error", "error", err.Error())
		respondError(w, "Verification failed", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("email verified", "user_id", userID)

	respondJSON(w, map[string]string{"message": "Email verified!"}, http.StatusOK)
}

// ActiveUsers lists users holding at least one session
// @Summary      Active users
// @Description  List distinct users with at least one recorded session
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string][]user.User
// @Failure      403 {object} httputil.ErrorResponse "Admins only"
// @Router       /admin/users [get]
func (h *Handler) ActiveUsers(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	users, err := h.service.ActiveUsers(r.Context())
	if err != nil {
		logger.Error("failed to list active users", "error", err.Error())
		respondError(w, "Server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"users": users}, http.StatusOK)
}

// UsersByType lists users with the given role
// @Summary      Users by role
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string][]user.User
// @Failure      400 {object} httputil.ErrorResponse "Unknown role"
// @Router       /admin/users/type/{type} [get]
func (h *Handler) UsersByType(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	role := user.Role(chi.URLParam(r, "type"))
	if !role.Valid() {
		respondError(w, "Unknown role", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	users, err := h.service.UsersByRole(r.Context(), role)
	if err != nil {
		logger.Error("failed to list users by role", "error", err.Error())
		respondError(w, "Server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{"users": users}, http.StatusOK)
}

// UserByID fetches a single user
// @Summary      User by id
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /admin/users/{id} [get]
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "Invalid user id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	u, err := h.service.User(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, "User not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get user", "error", err.Error())
		respondError(w, "Server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	respondJSON(w, UserResponse{User: u}, http.StatusOK)
}

// DeleteUser removes a user
// @Summary      Delete user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /admin/users/{id} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "Invalid user id", httputil.CodeValidationError, http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondError(w, "User not found", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete user", "error", err.Error())
		respondError(w, "Server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user deleted", "user_id", id)

	respondJSON(w, map[string]string{"message": "User deleted"}, http.StatusOK)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For first (behind proxy/load balancer)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port", strip the port
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
