package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/api/metrics"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/ports"
)

// RequirePermission authorizes the bearer token for perm. On success the
// claims are injected into the context, together with a flag telling the
// handler whether perm only applies to resources the caller owns.
func RequirePermission(auth ports.AuthService, perm domain.Permission) echo.MiddlewareFunc {
	scoped := domain.IsOwnershipScoped(perm)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c)
			if err != nil {
				return err
			}

			claims, err := auth.Authorize(c.Request().Context(), token, perm)
			metrics.AuthorizeDecisionsTotal.WithLabelValues(metrics.Decision(err), metrics.Permission(perm)).Inc()
			if err != nil {
				return err
			}

			c.Set(ContextKeyClaims, claims)
			c.Set(ContextKeyOwnershipScoped, scoped)
			return next(c)
		}
	}
}
