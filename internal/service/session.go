// Package service holds the business-logic layer: session orchestration for
// authentication and the review media store.  Services are constructed once
// at process start and injected into handlers; there is no package-level
// state.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/civictrack/road-registry/internal/model"
	"github.com/civictrack/road-registry/internal/repository"
	"github.com/civictrack/road-registry/internal/utils"
)

// Error kinds surfaced by the session service.  Handlers translate them to
// HTTP statuses: Conflict -> 409, Unauthorized -> 401, Forbidden -> 403,
// NotFound -> 404.
var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// UserStore is the slice of the user repository the session service needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenStore is the refresh-token lifecycle as the session service sees it.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, token string, exp time.Time, ip, ua string) error
	Validate(ctx context.Context, token string) (uint64, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID uint64) (int64, error)
}

// SessionConfig carries the knobs the session service needs from the
// application configuration.
type SessionConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// SessionService orchestrates register, login, refresh, logout and
// logout-all over the user and token stores.
type SessionService struct {
	users  UserStore
	tokens TokenStore
	cfg    SessionConfig
	log    *zap.Logger
}

func NewSessionService(users UserStore, tokens TokenStore, cfg SessionConfig, log *zap.Logger) *SessionService {
	return &SessionService{users: users, tokens: tokens, cfg: cfg, log: log}
}

// RegisterInput is the validated payload for account creation.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      int
	Phone    *string
	UserType string
}

// Register hashes the password and persists a new user.  ErrConflict is
// returned when the email (or phone) is already taken.  The returned user
// carries the hash internally but handlers must never serialize it.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Age:          in.Age,
		UserType:     in.UserType,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return u, nil
}

// LoginResult bundles the freshly issued token pair with a public user
// projection.
type LoginResult struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
	User    *model.User
}

// Login verifies credentials and issues one access token and one refresh
// token.  Unknown email and wrong password produce the identical
// ErrUnauthorized so the response does not reveal which part failed.
// ErrForbidden is returned when the account exists but the email has not
// been verified.  ip and ua are recorded with the refresh token.
func (s *SessionService) Login(ctx context.Context, email, password, ip, ua string) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrUnauthorized
	}
	if !u.IsVerified {
		return nil, ErrForbidden
	}

	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Email, u.UserType, s.cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Store(ctx, u.ID, refresh.Raw, refresh.Exp, ip, ua); err != nil {
		return nil, err
	}
	return &LoginResult{Access: access, Refresh: refresh, User: u}, nil
}

// Refresh exchanges a refresh token for a new access token.  The refresh
// token is NOT rotated: it stays valid until its own expiry or an explicit
// revocation.  Not-found, revoked and expired tokens all collapse into
// ErrUnauthorized externally; they are distinguished here only for logging.
// ErrNotFound is returned when the owning user row is gone and ErrForbidden
// when the account has been deactivated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (utils.AccessToken, error) {
	userID, err := s.tokens.Validate(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenRevoked):
			s.log.Warn("revoked refresh token replayed", zap.Uint64("user_id", userID))
		case errors.Is(err, repository.ErrTokenExpired):
			s.log.Info("expired refresh token presented")
		case errors.Is(err, repository.ErrTokenNotFound):
			s.log.Info("unknown refresh token presented")
		default:
			return utils.AccessToken{}, err
		}
		return utils.AccessToken{}, ErrUnauthorized
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.AccessToken{}, ErrNotFound
		}
		return utils.AccessToken{}, err
	}
	if !u.IsActive {
		return utils.AccessToken{}, ErrForbidden
	}
	return utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Email, u.UserType, s.cfg.AccessTTLMin)
}

// Logout revokes the refresh token when it exists.  It always reports
// success: logging out with an already-invalid or unknown token is not an
// error the caller should ever see.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		s.log.Warn("refresh token revoke failed", zap.Error(err))
	}
	return nil
}

// LogoutAll revokes every active refresh token for the user and returns the
// count, for "logged out N device(s)" messaging.
func (s *SessionService) LogoutAll(ctx context.Context, userID uint64) (int64, error) {
	return s.tokens.RevokeAllForUser(ctx, userID)
}
