package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table.  The opaque
// token string is the only secret; it is generated from random bytes and is
// never derived from user data.  Rows are never deleted, only flagged as
// revoked, so revocation is permanent regardless of expiry.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	Token     – unique opaque token string presented verbatim by clients.
//	ExpiresAt – expiration timestamp (UTC).
//	IsRevoked – set once on logout / logout-all; never cleared.
//	CreatedAt – timestamp of creation.
//	RevokedAt – when the token was revoked (nil while active).
//	IPAddress – client IP captured at login (nil when unknown).
//	UserAgent – client user agent captured at login (nil when unknown).
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	Token     string     // refresh_tokens.token
	ExpiresAt time.Time  // refresh_tokens.expires_at
	IsRevoked bool       // refresh_tokens.is_revoked
	CreatedAt time.Time  // refresh_tokens.created_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	IPAddress *string    // refresh_tokens.ip_address (nullable)
	UserAgent *string    // refresh_tokens.user_agent (nullable)
}

// Valid reports whether the token may still be exchanged for access tokens
// at the given instant: not revoked and not yet expired.
func (t *RefreshToken) Valid(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
