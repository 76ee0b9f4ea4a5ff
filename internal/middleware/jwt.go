package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/civictrack/road-registry/internal/model"
	"github.com/civictrack/road-registry/internal/utils"
)

// UserLoader is the single lookup the auth middleware needs.  *repository.
// UserRepo satisfies it; tests substitute an in-memory implementation.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and loads the authenticated user for the request.  The verification
// outcome is three-way: a tampered or malformed token is rejected outright,
// while an expired one gets a distinct message so clients know to call the
// refresh endpoint instead of re-authenticating.  On a valid token the user
// is loaded by subject id on every request; there is no token-side user
// cache, a deliberate simplicity trade-off at this system's scale.
//
// Downstream handlers read the results via c.Get("user") (*model.User),
// c.Get("user_id") (uint64) and c.Get("role") (string).
func JWTAuth(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			status, claims := utils.VerifyAccessToken(secret, raw)
			switch status {
			case utils.TokenExpired:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access token expired"})
			case utils.TokenInvalid:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			u, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
			}

			c.Set("user", u)
			c.Set("user_id", u.ID)
			c.Set("role", u.UserType)
			return next(c)
		}
	}
}
