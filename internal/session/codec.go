// Package session holds the pure parts of stateless cookie sessions: token
// computation, constant-time comparison and expiry arithmetic. Nothing here
// touches cookies, storage or the clock.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// MaxAge is how long an issued session stays valid.
const MaxAge = 30 * 24 * time.Hour

// maxClockSkew bounds how far in the future an issue time may be before the
// session is rejected.
const maxClockSkew = time.Minute

// ErrMissingSecret is returned when no signing secret is configured. The
// server must not start without one.
var ErrMissingSecret = errors.New("session secret is not configured")

// Key is the server-held secret used to compute session tokens.
type Key struct {
	secret []byte
}

// NewKey validates secret and wraps it.
func NewKey(secret string) (Key, error) {
	if secret == "" {
		return Key{}, ErrMissingSecret
	}
	return Key{secret: []byte(secret)}, nil
}

// Token computes the session token for email issued at issuedAt.
func (k Key) Token(email string, issuedAt time.Time) string {
	return ComputeToken(email, issuedAt.UnixMilli(), k.secret)
}

// ComputeToken returns the hex HMAC-SHA256 of email and issuedAtMs under secret.
// The output is deterministic and always 64 characters long.
func ComputeToken(email string, issuedAtMs int64, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(email))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(issuedAtMs, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// TokensMatch reports whether supplied equals expected without leaking where
// they differ. Mismatched lengths and any internal failure report false.
func TokensMatch(expected, supplied string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if len(expected) == 0 || len(expected) != len(supplied) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}

// Expired reports whether a session issued at issuedAt is no longer valid at
// now. A session is valid while now-issuedAt < maxAge, so an age of exactly
// maxAge is expired. Issue times further in the future than the allowed clock
// skew are treated as expired too.
func Expired(now, issuedAt time.Time, maxAge time.Duration) bool {
	age := now.Sub(issuedAt)
	if age < -maxClockSkew {
		return true
	}
	return age >= maxAge
}

// FormatIssuedAt renders t as milliseconds since the Unix epoch.
func FormatIssuedAt(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseIssuedAt parses a millisecond timestamp written by FormatIssuedAt.
// Only the canonical form is accepted: no sign, no leading zeros.
func ParseIssuedAt(s string) (time.Time, bool) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 || strconv.FormatInt(ms, 10) != s {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Cookie names carrying the session claim.
const (
	CookieEmail    = "fintrack_email"
	CookieToken    = "fintrack_session"
	CookieIssuedAt = "fintrack_issued_at"
	CookieAccount  = "fintrack_account"
)

// CookieNames lists every session cookie.
var CookieNames = []string{CookieEmail, CookieToken, CookieIssuedAt, CookieAccount}
