package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/api/metrics"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/api/middleware"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/ports"
)

type AuthHandler struct {
	auth   ports.AuthService
	matrix *domain.PermissionMatrix
}

func NewAuthHandler(auth ports.AuthService, matrix *domain.PermissionMatrix) *AuthHandler {
	return &AuthHandler{auth: auth, matrix: matrix}
}

// Login authenticates a user and returns an access/refresh token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  domain.AuthResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	start := time.Now()
	resp, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	metrics.LoginDuration.Observe(time.Since(start).Seconds())
	metrics.LoginsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new access token.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  domain.AuthResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	resp, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	metrics.RefreshesTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Logout discards the caller's tokens. The access token is read from the
// Authorization header when present and the refresh token from the body.
//
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  logoutRequest  false  "Refresh token to revoke"
// @Success      204
// @Failure      503   {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	access, _ := middleware.BearerToken(c)

	err := h.auth.Logout(c.Request().Context(), ports.LogoutInput{
		AccessToken:  access,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Authorize checks whether the bearer token holds a permission. It lets other
// services delegate permission checks to this one.
//
// @Summary      Check a permission
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      authorizeRequest  true  "Permission to check"
// @Success      200   {object}  authorizeResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/authorize [post]
func (h *AuthHandler) Authorize(c echo.Context) error {
	token, err := middleware.BearerToken(c)
	if err != nil {
		return err
	}

	var req authorizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	perm := domain.Permission(req.Permission)
	claims, err := h.auth.Authorize(c.Request().Context(), token, perm)
	// Only authenticated callers reach a decision worth counting.
	if err == nil || errors.Is(err, domain.ErrForbidden) {
		metrics.AuthorizeDecisionsTotal.WithLabelValues(metrics.Decision(err), metrics.Permission(perm)).Inc()
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authorizeResponse{
		Allowed:         true,
		Subject:         claims.Subject,
		Role:            claims.Role,
		OwnershipScoped: domain.IsOwnershipScoped(perm),
	})
}

// Me returns the caller's identity as carried by the access token.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	perms := h.matrix.PermissionsForRole(claims.Role)
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })

	return c.JSON(http.StatusOK, meResponse{
		ID:          claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: perms,
		ExpiresAt:   claims.ExpiresAt,
	})
}
