package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
	"schoolregistry/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	cookie      CookieConfig
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

// LoginRequest represents a user login request. Identifier may be a
// username or an email; Username is accepted for older clients.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required_without=Username"`
	Username   string `json:"username" validate:"required_without=Identifier"`
	Password   string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login.
type LoginResponse struct {
	User      model.PublicUser `json:"user"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// UpdatePasswordRequest represents a password change.
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// DetailResponse is a plain acknowledgement.
type DetailResponse struct {
	Detail  string `json:"detail"`
	Revoked *int64 `json:"revoked,omitempty"`
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Username
	}

	user, token, expiresAt, err := h.authService.Login(c.Request().Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, errors.ErrUnauthenticated) {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "invalid username or password",
				Code:  "INVALID_CREDENTIALS",
			})
		}
		return ErrorHTTP(err)
	}

	h.cookie.set(c, token)
	return c.JSON(http.StatusOK, LoginResponse{
		User:      user.Public(),
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Logout godoc
// @Summary Logout current session
// @Tags auth
// @Produce json
// @Success 200 {object} DetailResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token := SessionToken(c, h.cookie.Name)
	if err := h.authService.Logout(c.Request().Context(), token); err != nil {
		return ErrorHTTP(err)
	}
	h.cookie.clear(c)
	return c.JSON(http.StatusOK, DetailResponse{Detail: "success"})
}

// LogoutAll godoc
// @Summary Logout every session of the current user
// @Tags auth
// @Produce json
// @Security SessionCookie
// @Success 200 {object} DetailResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout_all [post]
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return ErrorHTTP(errors.ErrUnauthenticated)
	}
	removed, err := h.authService.LogoutAll(c.Request().Context(), user.ID)
	if err != nil {
		return ErrorHTTP(err)
	}
	h.cookie.clear(c)
	return c.JSON(http.StatusOK, DetailResponse{Detail: "success", Revoked: &removed})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security SessionCookie
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return ErrorHTTP(errors.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdatePassword godoc
// @Summary Change the current user's password
// @Tags auth
// @Accept json
// @Security SessionCookie
// @Param request body UpdatePasswordRequest true "Old and new password"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/update_password [patch]
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return ErrorHTTP(errors.ErrUnauthenticated)
	}

	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err.Error())
	}

	if err := h.authService.UpdatePassword(c.Request().Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		return ErrorHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
