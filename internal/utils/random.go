package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// randomFrom draws n characters uniformly from alphabet using crypto/rand.
func randomFrom(alphabet string, n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// RandomCode returns n upper-case alphanumerics.  Temporary access codes
// are 8 characters.
func RandomCode(n int) (string, error) { return randomFrom(upperAlnum, n) }

// RandomID returns n lower-case alphanumerics for slugs.
func RandomID(n int) (string, error) { return randomFrom(lowerAlnum, n) }

// CertificateNumber formats DE-<base36 unix millis>-<6 random chars>, all
// upper case.
func CertificateNumber(now time.Time) (string, error) {
	suffix, err := RandomCode(6)
	if err != nil {
		return "", err
	}
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return "DE-" + ts + "-" + suffix, nil
}

// EmailDomain returns the lower-cased part after the last @, or "".
func EmailDomain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 || i == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[i+1:]))
}
