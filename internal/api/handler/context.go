package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/api/middleware"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

// ctxClaims returns the claims injected by the auth middleware. Their absence
// means the route was mounted without it, which is reported as 401.
func ctxClaims(c echo.Context) (*domain.Claims, error) {
	claims, _ := c.Get(middleware.ContextKeyClaims).(*domain.Claims)
	if claims == nil || claims.Subject == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}
