package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/VRCarlos21/QrSanfer/internal/model"
)

// CtxIdentity holds the *model.User loaded by LoadIdentity.
const CtxIdentity = "identity"

// IdentityStore is the slice of the user repository needed to resolve the
// authenticated account, office assignment included.
type IdentityStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// LoadIdentity resolves the token's subject to a full account record and
// stores it in the context.  Deactivated accounts are cut off here, so a
// disabled guard or admin loses access as soon as their token is next used,
// not when it expires.
func LoadIdentity(store IdentityStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := UserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := store.GetByID(ctx, id)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown account"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
			}
			c.Set(CtxIdentity, &u)
			return next(c)
		}
	}
}

// Identity returns the account loaded by LoadIdentity, or nil when the
// middleware did not run.
func Identity(c echo.Context) *model.User {
	u, _ := c.Get(CtxIdentity).(*model.User)
	return u
}
