package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"encoding/hex"  // hex encoding for refresh token strings
	"errors"        // error inspection for jwt sentinel errors
	"time"          // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived, stateless and encoded in the Authorization
// header when calling protected endpoints; validity is entirely determined
// by signature and expiry, which is why they cannot be revoked early.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived opaque token used to obtain new
// access tokens.  The Raw field contains the random token string returned to
// the client and persisted server-side; Exp records when it expires.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// Claims is the decoded payload of a verified access token.
type Claims struct {
	UserID uint64 // subject (sub)
	Email  string // email claim
	Role   string // role claim (user_type)
}

// TokenStatus is the three-way outcome of VerifyAccessToken.  Callers must
// distinguish "expired, please refresh" from "forged/malformed, reject
// outright"; collapsing them would either leak a retry path for forged
// tokens or force valid users to re-authenticate instead of refreshing.
type TokenStatus int

const (
	TokenValid   TokenStatus = iota // signature and expiry both check out
	TokenExpired                    // well-formed and correctly signed, but past exp
	TokenInvalid                    // malformed, tampered, or wrong algorithm
)

// NewAccessToken builds and signs an HS256 JWT for a user.  The claims carry
// the subject (sub), email, role, expiration (exp) and issued-at (iat).  All
// timestamps are UTC wall-clock; local time would shift expiry by the host
// timezone.
func NewAccessToken(secret string, userID uint64, email, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken checks a raw bearer token and returns a TokenStatus plus
// the decoded claims when valid.  Signature integrity is checked before
// expiry: a tampered token is always TokenInvalid even if it is also past
// its exp.  No jwt library error ever escapes this function.
func VerifyAccessToken(secret, raw string) (TokenStatus, Claims) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		// The parser verifies the signature before validating claims, so an
		// ErrTokenExpired here implies the signature was genuine.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenExpired, Claims{}
		}
		return TokenInvalid, Claims{}
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return TokenInvalid, Claims{}
	}
	cl := Claims{}
	switch sub := mc["sub"].(type) {
	case float64:
		cl.UserID = uint64(sub)
	default:
		return TokenInvalid, Claims{}
	}
	cl.Email, _ = mc["email"].(string)
	cl.Role, _ = mc["role"].(string)
	return TokenValid, cl
}

// NewRefreshToken returns a cryptographically secure random token and its
// expiration time.  The token string itself is the only secret; it is never
// derived from user data.  ttlDays controls how long it remains valid.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(32) // 32 bytes -> 64 hex chars, URL-safe
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
