package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniconhq/unicon-backend/config"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{
		Secret:     "secret-a",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})

	pair, err := svc.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	for _, token := range []string{pair.Access, pair.Refresh} {
		uid, err := svc.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), uid)
	}
}

func TestTokenRejectsWrongSecretAndGarbage(t *testing.T) {
	issuer := NewTokenService(config.JWTConfig{Secret: "secret-a", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	verifier := NewTokenService(config.JWTConfig{Secret: "secret-b", AccessTTL: time.Minute, RefreshTTL: time.Hour})

	pair, err := issuer.Issue(7)
	require.NoError(t, err)

	_, err = verifier.Parse(pair.Access)
	assert.Error(t, err)

	_, err = issuer.Parse("not.a.token")
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{
		Secret:     "secret-a",
		AccessTTL:  -time.Minute,
		RefreshTTL: time.Hour,
	})
	pair, err := svc.Issue(7)
	require.NoError(t, err)

	_, err = svc.Parse(pair.Access)
	assert.Error(t, err, "expired access token must not parse")

	_, err = svc.Parse(pair.Refresh)
	assert.NoError(t, err)
}
