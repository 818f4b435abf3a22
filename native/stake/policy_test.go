package stake

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		raw    string
		policy Policy
		ok     bool
	}{
		{"anytime", PolicyClaimAnytime, true},
		{"afterLock", PolicyClaimAfterLock, true},
		{"", "", false},
		{"afterlock", "", false},
		{"never", "", false},
	}
	for _, tc := range tests {
		policy, err := ParsePolicy(tc.raw)
		if !tc.ok {
			require.ErrorIs(t, err, ErrUnknownPolicy, "raw=%q", tc.raw)
			continue
		}
		require.NoError(t, err, "raw=%q", tc.raw)
		require.Equal(t, tc.policy, policy)
	}
}

func TestAnytimePolicyHasNoLock(t *testing.T) {
	engine, state, _ := newTestEngine(t, PolicyClaimAnytime)
	engine.SetLockWindow(0, 1000)
	state.setLP(alice, 10)
	_, err := engine.Stake(alice, big.NewInt(1))
	require.NoError(t, err)

	// Lock windows only bind under the after-lock policy.
	_, _, err = engine.Exit(alice)
	require.NoError(t, err)
}

func TestAfterLockWindowAnchorsAtStart(t *testing.T) {
	engine, state, clock := newTestEngine(t, PolicyClaimAfterLock)
	engine.SetLockWindow(100, 50)
	state.setLP(alice, 10)
	_, err := engine.Stake(alice, big.NewInt(1))
	require.NoError(t, err)

	clock.Advance(149)
	_, _, err = engine.Exit(alice)
	require.ErrorIs(t, err, ErrLockNotExpired)

	clock.Advance(1)
	_, _, err = engine.Exit(alice)
	require.NoError(t, err)
}
