package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	const ttl = 300 * time.Second

	newIssuerAt := func(now time.Time) *Issuer {
		cur := now
		return NewIssuer("test-secret", "audio").WithClock(func() time.Time { return cur })
	}

	t.Run("IssueAndVerify", func(t *testing.T) {
		i := newIssuerAt(issuedAt)
		tok, err := i.Issue(7, "entries/7/audio.ogg", ttl)
		require.NoError(t, err)

		grant, err := i.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, uint(7), grant.UserID)
		assert.Equal(t, "entries/7/audio.ogg", grant.ResourceID)
	})

	// 有效期边界：T-1 秒通过，T+1 秒拒绝
	t.Run("ExpiryBoundary", func(t *testing.T) {
		i := NewIssuer("test-secret", "audio")
		now := issuedAt
		i.WithClock(func() time.Time { return now })

		tok, err := i.Issue(7, "res", ttl)
		require.NoError(t, err)

		now = issuedAt.Add(ttl - time.Second)
		_, err = i.Verify(tok)
		assert.NoError(t, err)

		now = issuedAt.Add(ttl + time.Second)
		_, err = i.Verify(tok)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("WrongResource", func(t *testing.T) {
		i := newIssuerAt(issuedAt)
		tok, err := i.Issue(7, "entries/7/audio.ogg", ttl)
		require.NoError(t, err)

		_, err = i.VerifyResource(tok, "entries/8/audio.ogg")
		assert.ErrorIs(t, err, ErrWrongResource)

		_, err = i.VerifyResource(tok, "entries/7/audio.ogg")
		assert.NoError(t, err)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		i := newIssuerAt(issuedAt)
		tok, err := i.Issue(7, "res", ttl)
		require.NoError(t, err)

		other := NewIssuer("other-secret", "audio").WithClock(func() time.Time { return issuedAt })
		_, err = other.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("WrongPurpose", func(t *testing.T) {
		i := newIssuerAt(issuedAt)
		tok, err := i.Issue(7, "res", ttl)
		require.NoError(t, err)

		login := NewIssuer("test-secret", "login").WithClock(func() time.Time { return issuedAt })
		_, err = login.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("Malformed", func(t *testing.T) {
		i := newIssuerAt(issuedAt)
		_, err := i.Verify("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}
