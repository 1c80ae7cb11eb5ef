package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/lacomanda/pos-terminal/internal/auth"
	"github.com/lacomanda/pos-terminal/internal/common"
)

func signToken(t *testing.T, secret []byte, roles []string) string {
	t.Helper()
	token, err := jwt.NewBuilder().
		Subject("mozo-7").
		Claim("name", "Lucía").
		Claim("roles", roles).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, secret))
	require.NoError(t, err)
	return string(signed)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	mw := auth.Middleware{Secret: []byte("terminal-secret")}
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthPlacesActorOnContext(t *testing.T) {
	secret := []byte("terminal-secret")
	mw := auth.Middleware{Secret: secret}

	var got common.Actor
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := common.ActorFrom(r.Context())
		require.True(t, ok)
		got = actor
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, []string{"mozo"}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "mozo-7", got.ID)
	require.Equal(t, "Lucía", got.Name)
	require.Equal(t, []string{"mozo"}, got.Roles)
	require.False(t, got.Elevated)
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	mw := auth.Middleware{Secret: []byte("terminal-secret")}
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, []byte("other"), nil))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
