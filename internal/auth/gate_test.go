package auth_test

import (
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/lacomanda/pos-terminal/internal/auth"
	"github.com/lacomanda/pos-terminal/internal/common"
)

func TestCanModifyPersisted(t *testing.T) {
	cases := []struct {
		name  string
		actor common.Actor
		want  bool
	}{
		{"waiter", common.Actor{Roles: []string{"mozo"}}, false},
		{"admin", common.Actor{Roles: []string{"admin"}}, true},
		{"owner accented", common.Actor{Roles: []string{"Dueño"}}, true},
		{"administrador", common.Actor{Roles: []string{"administrador"}}, true},
		{"elevated by pin", common.Actor{Roles: []string{"mozo"}, Elevated: true}, true},
		{"no roles", common.Actor{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, auth.CanModifyPersisted(tc.actor))
		})
	}
}

func TestPinGate(t *testing.T) {
	hash, err := argon2id.CreateHash("4321", argon2id.DefaultParams)
	require.NoError(t, err)

	gate := auth.PinGate{Hash: hash}
	require.NoError(t, gate.Verify("4321"))
	require.ErrorIs(t, gate.Verify("0000"), auth.ErrPinMismatch)

	empty := auth.PinGate{}
	require.ErrorIs(t, empty.Verify("4321"), auth.ErrPinNotConfigured)
}
