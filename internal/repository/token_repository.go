package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/civictrack/road-registry/internal/model"
)

// Validation outcomes for refresh tokens.  Revocation and expiry are both
// terminal, but they are reported distinctly so a caller can log "previously
// revoked token replayed" differently from "token aged out".  Externally the
// session service collapses all three into one unauthorized error.
var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("refresh token expired")
)

// TokenRepo persists refresh tokens in the 'refresh_tokens' table.  Rows are
// never deleted; revocation only sets the is_revoked flag, so a revoked
// token can never become valid again.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token row together with the issuing client
// metadata.  ip and ua may be empty; they are stored as NULL then.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, token string, exp time.Time, ip, ua string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token, expires_at, ip_address, user_agent) VALUES (?,?,?,?,?)",
		userID, token, exp, nullable(ip), nullable(ua))
	return err
}

// Validate looks a token up by exact string match and returns the owning
// user id when it is still usable.  The revoked flag is checked before
// expiry so replay of a revoked token is reported as such even after the
// token would have expired anyway.  The owner id is returned alongside the
// revoked and expired sentinels so callers can log who the token belonged
// to; it must not be treated as authenticated in those cases.
func (r *TokenRepo) Validate(ctx context.Context, token string) (uint64, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, is_revoked FROM refresh_tokens WHERE token=? LIMIT 1",
		token).Scan(&t.UserID, &t.ExpiresAt, &t.IsRevoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenNotFound
		}
		return 0, err
	}
	if t.IsRevoked {
		return t.UserID, ErrTokenRevoked
	}
	if !t.Valid(time.Now().UTC()) {
		return t.UserID, ErrTokenExpired
	}
	return t.UserID, nil
}

// Revoke marks a token as revoked.  It is idempotent: revoking an already
// revoked or unknown token is a no-op, never an error.
func (r *TokenRepo) Revoke(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1, revoked_at=UTC_TIMESTAMP() WHERE token=? AND is_revoked=0",
		token)
	return err
}

// RevokeAllForUser revokes every currently-active token for the user and
// returns how many were revoked, for "logged out N device(s)" messaging.
// The single UPDATE executes atomically, so a login racing with a
// logout-all sees its new token either before or after the bulk revoke,
// never a partially-revoked state.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1, revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND is_revoked=0",
		userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
