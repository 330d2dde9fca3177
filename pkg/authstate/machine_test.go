package authstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginIsIdempotentPerEpisode(t *testing.T) {
	m := NewMachine(time.Hour)

	assert.Equal(t, Idle, m.State())
	m.Begin()
	assert.Equal(t, AuthFailurePending, m.State())
	assert.True(t, m.Blocking())

	// Further session-expired responses must not re-arm the deadline
	m.Begin()
	m.Begin()
	assert.Equal(t, AuthFailurePending, m.State())
}

func TestFallbackFiresOnceAfterDeadline(t *testing.T) {
	m := NewMachine(10 * time.Millisecond)
	invalid := m.SessionInvalid()

	m.Begin()

	select {
	case <-invalid:
	case <-time.After(time.Second):
		t.Fatal("expected session-invalid event")
	}
	assert.True(t, m.LogoutTriggered())
	assert.Equal(t, Resolved, m.State())

	// A second 401 arriving before reset must not produce a second event
	m.Begin()
	select {
	case <-invalid:
		t.Fatal("fallback fired twice in one episode")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMarkHandledSuppressesFallback(t *testing.T) {
	m := NewMachine(20 * time.Millisecond)
	invalid := m.SessionInvalid()

	m.Begin()
	require.True(t, m.MarkHandled())
	assert.Equal(t, Resolved, m.State())

	select {
	case <-invalid:
		t.Fatal("fallback fired after handler claimed the episode")
	case <-time.After(80 * time.Millisecond):
	}
	assert.False(t, m.LogoutTriggered())
}

func TestMarkHandledClaimsAtMostOnce(t *testing.T) {
	m := NewMachine(time.Hour)

	m.Begin()
	require.True(t, m.MarkHandled())

	// The first handler owns the episode; concurrent handlers of the
	// same burst of 401s must all lose the claim.
	assert.False(t, m.MarkHandled())
	assert.False(t, m.MarkHandled())
}

func TestMarkHandledLosesRaceToFallback(t *testing.T) {
	m := NewMachine(5 * time.Millisecond)
	invalid := m.SessionInvalid()

	m.Begin()
	<-invalid

	// The episode is already resolved by the fallback
	assert.False(t, m.MarkHandled())
}

func TestMarkHandledWithoutEpisode(t *testing.T) {
	m := NewMachine(0)
	assert.False(t, m.MarkHandled())
}

func TestResetClearsAllFlags(t *testing.T) {
	m := NewMachine(5 * time.Millisecond)
	invalid := m.SessionInvalid()

	m.Begin()
	<-invalid
	require.True(t, m.LogoutTriggered())

	m.Reset()
	assert.Equal(t, Idle, m.State())
	assert.False(t, m.Blocking())
	assert.False(t, m.LogoutTriggered())

	// A fresh episode works end to end after reset
	m.Begin()
	select {
	case <-invalid:
	case <-time.After(time.Second):
		t.Fatal("expected a fresh episode to fire the fallback again")
	}
}

func TestResetBeforeDeadlineStopsTimer(t *testing.T) {
	m := NewMachine(20 * time.Millisecond)
	invalid := m.SessionInvalid()

	m.Begin()
	m.Reset()

	select {
	case <-invalid:
		t.Fatal("fallback fired after reset")
	case <-time.After(80 * time.Millisecond):
	}
}
