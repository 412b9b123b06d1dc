package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartTokenHeader carries the signed cart token in both directions.
const CartTokenHeader = "X-Cart-Token"

type cartTokens interface {
	Issue(cartID string) (string, error)
	Parse(token string) (string, error)
}

// CartToken resolves the caller's cart id from X-Cart-Token. A missing or
// invalid token starts a new cart and the fresh token is returned in the
// response header.
func CartToken(tokens cartTokens, newCartID func() string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if tokens == nil || newCartID == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart tokens unavailable"))
				return
			}

			raw := strings.TrimSpace(r.Header.Get(CartTokenHeader))
			cartID := ""
			if raw != "" {
				parsed, err := tokens.Parse(raw)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "reason", err.Error()), "cart.token.rejected")
					}
				} else {
					cartID = parsed
				}
			}

			if cartID == "" {
				cartID = newCartID()
				token, err := tokens.Issue(cartID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue cart token"))
					return
				}
				w.Header().Set(CartTokenHeader, token)
			}

			ctx = WithCartID(ctx, cartID)
			if logg != nil {
				ctx = logg.WithCartID(ctx, cartID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
