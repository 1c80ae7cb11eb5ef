package auth

import (
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/lacomanda/pos-terminal/internal/common"
)

// Middleware validates the backend-issued bearer token and places the actor
// on the request context.
type Middleware struct {
	Secret []byte
}

// RequireAuth rejects requests without a valid HS256 bearer token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			common.JSONError(w, http.StatusUnauthorized, common.CodePermissionDenied, "missing bearer token", nil)
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		token, err := jwt.Parse([]byte(raw),
			jwt.WithKey(jwa.HS256, m.Secret),
			jwt.WithValidate(true),
		)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, common.CodePermissionDenied, "invalid or expired token", nil)
			return
		}

		actor := common.Actor{ID: token.Subject()}
		if v, ok := token.Get("name"); ok {
			if name, ok := v.(string); ok {
				actor.Name = name
			}
		}
		if v, ok := token.Get("roles"); ok {
			actor.Roles = rolesFromClaim(v)
		}

		ctx := common.WithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func rolesFromClaim(v interface{}) []string {
	switch claim := v.(type) {
	case []string:
		return claim
	case []interface{}:
		out := make([]string, 0, len(claim))
		for _, item := range claim {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		parts := strings.Split(claim, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	default:
		return nil
	}
}
