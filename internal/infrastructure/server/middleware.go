package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/geominder/core/internal/adapters/http"
	"github.com/geominder/core/internal/application/services"
	"github.com/geominder/core/internal/ports"
)

const claimsContextKey = "claims"

// authMiddleware validates JWT tokens and puts the token on the request
// context so services can read the caller's auth state.
func (s *Server) authMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := httpHandlers.BearerToken(c.Request())
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing or malformed authorization")
			}

			claims, err := s.auth.ValidateToken(tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error":    err.Error(),
					"endpoint": c.Request().URL.Path,
				})
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			ctx := services.WithToken(c.Request().Context(), tokenString)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(claimsContextKey, claims)

			return next(c)
		}
	}
}

// getClaimsFromContext returns the claims stored by authMiddleware
func getClaimsFromContext(c echo.Context) *ports.Claims {
	claims, ok := c.Get(claimsContextKey).(*ports.Claims)
	if !ok {
		return nil
	}
	return claims
}
