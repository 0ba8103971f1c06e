package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCode(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c, err := RandomCode(8)
		require.NoError(t, err)
		assert.Regexp(t, re, c)
		seen[c] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestRandomID(t *testing.T) {
	id, err := RandomID(8)
	require.NoError(t, err)
	assert.Regexp(t, `^[a-z0-9]{8}$`, id)
}

func TestCertificateNumber(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	n, err := CertificateNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, `^DE-LOYW3V28-[A-Z0-9]{6}$`, n)
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "example.com", EmailDomain("Ada@Example.com"))
	assert.Equal(t, "", EmailDomain("nobody"))
	assert.Equal(t, "", EmailDomain("trailing@"))
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := NewSessionToken("s3cret", "user_1", "ada@example.com", "Ada", time.Hour)
	require.NoError(t, err)

	claims, err := ParseSessionToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada", claims.Name)

	_, err = ParseSessionToken("other", tok.Token)
	assert.Error(t, err)
}

func TestSessionTokenExpired(t *testing.T) {
	tok, err := NewSessionToken("s3cret", "user_1", "", "", -time.Minute)
	require.NoError(t, err)
	_, err = ParseSessionToken("s3cret", tok.Token)
	assert.Error(t, err)
}

func TestSessionTokenRequiresUser(t *testing.T) {
	_, err := NewSessionToken("s3cret", "", "", "", time.Hour)
	assert.Error(t, err)
}
