package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/ports"
)

// UserHandler exposes the identity writes needed to operate the auth core.
type UserHandler struct {
	users  ports.UserService
	matrix *domain.PermissionMatrix
}

func NewUserHandler(users ports.UserService, matrix *domain.PermissionMatrix) *UserHandler {
	return &UserHandler{users: users, matrix: matrix}
}

// Create registers a new identity.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "New user"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	identity, err := h.users.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toUserResponse(identity))
}

// Get returns one identity. Callers without read:users may only read their
// own record.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	if !h.matrix.HasPermission(claims.Role, domain.PermReadUsers) {
		if !h.matrix.HasPermission(claims.Role, domain.PermReadOwnProfile) || !domain.OwnsResource(claims.Subject, id) {
			return domain.ErrForbidden
		}
	}

	identity, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(identity))
}

// SetStatus activates or deactivates an identity. Deactivation takes effect
// on the identity's next refresh.
//
// @Summary      Activate or deactivate a user
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string            true  "User id"
// @Param        body  body  setStatusRequest  true  "New status"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/users/{id}/status [patch]
func (h *UserHandler) SetStatus(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	id := c.Param("id")
	if id == claims.Subject && !*req.Active {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "cannot deactivate your own account"})
	}

	if err := h.users.SetActive(c.Request().Context(), id, *req.Active); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
