package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tutorhub/backend/internal/httputil"
	"github.com/tutorhub/backend/internal/models"
)

type identityKey struct{}

type identity struct {
	userID int64
	role   string
}

// WithIdentity stores an authenticated caller on ctx.
func WithIdentity(ctx context.Context, userID int64, role string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity{userID: userID, role: role})
}

// UserID returns the authenticated caller's id.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	if !ok || id.userID <= 0 {
		return 0, false
	}
	return id.userID, true
}

// Role returns the authenticated caller's role, or "" when unauthenticated.
func Role(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(identity)
	return id.role
}

// Claims are the JWT claims issued at login.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and stores the caller's
// identity on the request context.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
				return
			}

			var claims Claims
			token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid || claims.UserID <= 0 {
				httputil.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired token"})
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.WriteJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Insufficient permissions"})
		})
	}
}
