package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefreshTestModeTracksEnvironment(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	require.False(t, InTestMode())

	// Anything other than "1" is off.
	t.Setenv(testModeEnv, "true")
	RefreshTestMode()
	require.False(t, InTestMode())
}
