package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todolists/internal/application/services"
	"github.com/taskmaster/todolists/internal/infrastructure/logger"
	"github.com/taskmaster/todolists/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Signup godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.SignupRequest true "Credentials"
// @Success 201 {object} ports.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req ports.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Signup(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Signup failed", "error", err, "username", req.Username)
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, response)
}

// Login godoc
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{
			"username": req.Username,
		})
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, response)
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} ports.UserSummary
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Me(c.Request().Context(), userID)
	if err != nil {
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// Logout revokes the token used for this request
func (h *AuthHandler) Logout(c echo.Context) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if err := h.authService.Logout(c.Request().Context(), claims); err != nil {
		h.logger.WithUserID(claims.UserID).WithError(err).Errorw("Logout failed")
		return ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}
