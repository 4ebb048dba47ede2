package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingRegistration(t *testing.T) {
	pending, err := NewPendingRegistration("alice", "alice@example.com", "s3cret-pw", "hi there")
	require.NoError(t, err)

	assert.Equal(t, "alice", pending.Name)
	assert.Len(t, pending.Token, 48, "token is 24 random bytes hex encoded")
	assert.NotEqual(t, "s3cret-pw", pending.PasswordHash, "the raw password must never be stored")
	assert.True(t, CheckPasswordHash("s3cret-pw", pending.PasswordHash))
	assert.False(t, pending.IsConsumed())
}

func TestNewPendingRegistrationTokensAreUnique(t *testing.T) {
	a, err := NewPendingRegistration("alice", "", "s3cret-pw", "")
	require.NoError(t, err)
	b, err := NewPendingRegistration("alice", "", "s3cret-pw", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
}

func TestPendingRegistrationIsConsumed(t *testing.T) {
	pending, err := NewPendingRegistration("alice", "", "s3cret-pw", "")
	require.NoError(t, err)

	now := time.Now()
	pending.ConsumedAt = &now
	assert.True(t, pending.IsConsumed())
}
