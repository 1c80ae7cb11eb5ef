package session_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lacomanda/pos-terminal/internal/session"
)

func TestRegistryLifecycle(t *testing.T) {
	reg := session.NewRegistry()
	s := reg.Open()
	require.NotEmpty(t, s.ID)
	require.NotNil(t, s.Draft)
	require.Equal(t, 1, reg.Len())

	got, err := reg.Get(s.ID)
	require.NoError(t, err)
	require.Same(t, s, got)

	reg.Close(s.ID)
	_, err = reg.Get(s.ID)
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	reg.Close(s.ID)
}

func TestSubmitGuardIsExclusive(t *testing.T) {
	s := session.NewRegistry().Open()
	s.Lock()
	defer s.Unlock()

	require.NoError(t, s.BeginSubmit())
	require.True(t, s.Submitting())
	require.ErrorIs(t, s.BeginSubmit(), session.ErrSubmissionInFlight)

	s.EndSubmit()
	require.NoError(t, s.BeginSubmit())
}

func TestElevationIsOneShot(t *testing.T) {
	s := session.NewRegistry().Open()
	s.Lock()
	defer s.Unlock()

	require.False(t, s.ConsumeElevation())
	s.Elevate()
	require.True(t, s.ConsumeElevation())
	require.False(t, s.ConsumeElevation())
}
