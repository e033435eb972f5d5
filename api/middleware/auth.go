package middleware

import (
	"net/http"
	"strings"

	"github.com/kariuki00743/safipay/api/responses"
	pkgAuth "github.com/kariuki00743/safipay/pkg/auth"
	"github.com/kariuki00743/safipay/pkg/config"
	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
	"github.com/kariuki00743/safipay/pkg/logger"
)

const bearerScheme = "bearer"

// Auth verifies the identity provider's bearer token and puts the caller's id
// and email on the context. Ownership is checked later against the row.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token has no usable subject"))
				return
			}

			ctx := withEmail(WithUserID(r.Context(), userID.String()), claims.Email)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
