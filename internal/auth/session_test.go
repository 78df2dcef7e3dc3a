package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)

	token, err := s.Issue("clinic@example.com")
	require.NoError(t, err)

	email, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "clinic@example.com", email)
}

func TestSessionRejectsTampering(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)

	token, err := s.Issue("clinic@example.com")
	require.NoError(t, err)

	_, err = s.Validate(token + "x")
	assert.ErrorIs(t, err, ErrInvalidSession)

	other := NewSessions("different-secret", time.Hour)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = s.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionExpires(t *testing.T) {
	s := NewSessions("test-secret", -time.Minute)

	token, err := s.Issue("clinic@example.com")
	require.NoError(t, err)

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionCookie(t *testing.T) {
	s := NewSessions("test-secret", time.Hour)

	c := s.Cookie("tok")
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 3600, c.MaxAge)

	cleared := s.ClearCookie()
	assert.Equal(t, -1, cleared.MaxAge)
}
