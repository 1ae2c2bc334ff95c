package orderstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalTransitions(t *testing.T) {
	legal := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusPaid},
		{StatusPending, StatusCancelled},
		{StatusPaid, StatusShipped},
		{StatusPaid, StatusRefunded},
		{StatusShipped, StatusDelivered},
	}
	for _, tc := range legal {
		assert.NoError(t, Transition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIllegalTransitionsRejected(t *testing.T) {
	all := []Status{StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded}

	legal := map[[2]Status]bool{
		{StatusPending, StatusPaid}:      true,
		{StatusPending, StatusCancelled}: true,
		{StatusPaid, StatusShipped}:      true,
		{StatusPaid, StatusRefunded}:     true,
		{StatusShipped, StatusDelivered}: true,
	}

	for _, from := range all {
		for _, to := range all {
			if legal[[2]Status{from, to}] {
				continue
			}
			err := Transition(from, to)
			require.Error(t, err, "%s -> %s must be rejected", from, to)

			var terr *TransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, from, terr.From)
			assert.Equal(t, to, terr.To)
		}
	}
}

func TestApplyPaid(t *testing.T) {
	change, err := ApplyPaid(StatusPending)
	require.NoError(t, err)
	assert.True(t, change)

	change, err = ApplyPaid(StatusPaid)
	require.NoError(t, err)
	assert.False(t, change, "repeat confirmation must be a no-op")

	for _, s := range []Status{StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded} {
		_, err = ApplyPaid(s)
		var terr *TransitionError
		require.ErrorAs(t, err, &terr, "confirmation on %s must fail", s)
		assert.Equal(t, StatusPaid, terr.To)
	}
}

func TestParse(t *testing.T) {
	s, err := Parse("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = Parse("unknown")
	assert.Error(t, err)
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusPaid.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
	assert.False(t, Status("bogus").IsTerminal())
}
