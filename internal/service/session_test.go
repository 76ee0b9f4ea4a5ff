package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/civictrack/road-registry/internal/model"
	"github.com/civictrack/road-registry/internal/repository"
	"github.com/civictrack/road-registry/internal/utils"
)

// fakeUserStore mimics the repository semantics the session service depends
// on: sql.ErrNoRows for missing rows and ErrEmailExists for duplicates.
type fakeUserStore struct {
	nextID uint64
	byID   map[uint64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[uint64]*model.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, u *model.User) error {
	for _, existing := range s.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.IsActive = true
	s.byID[u.ID] = u
	return nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type storedToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type fakeTokenStore struct {
	tokens map[string]*storedToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]*storedToken{}}
}

func (s *fakeTokenStore) Store(_ context.Context, userID uint64, token string, exp time.Time, _, _ string) error {
	s.tokens[token] = &storedToken{userID: userID, exp: exp}
	return nil
}

func (s *fakeTokenStore) Validate(_ context.Context, token string) (uint64, error) {
	t, ok := s.tokens[token]
	if !ok {
		return 0, repository.ErrTokenNotFound
	}
	if t.revoked {
		return t.userID, repository.ErrTokenRevoked
	}
	if time.Now().After(t.exp) {
		return t.userID, repository.ErrTokenExpired
	}
	return t.userID, nil
}

func (s *fakeTokenStore) Revoke(_ context.Context, token string) error {
	if t, ok := s.tokens[token]; ok {
		t.revoked = true
	}
	return nil
}

func (s *fakeTokenStore) RevokeAllForUser(_ context.Context, userID uint64) (int64, error) {
	var n int64
	for _, t := range s.tokens {
		if t.userID == userID && !t.revoked {
			t.revoked = true
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T) (*SessionService, *fakeUserStore, *fakeTokenStore) {
	t.Helper()
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	svc := NewSessionService(users, tokens, SessionConfig{
		JWTSecret:      "session-test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 30,
		BcryptCost:     bcrypt.MinCost,
	}, zap.NewNop())
	return svc, users, tokens
}

func registerVerified(t *testing.T, svc *SessionService, users *fakeUserStore, email, password string) *model.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "Test User", Email: email, Password: password, UserType: model.UserTypeCitizen,
	})
	require.NoError(t, err)
	users.byID[u.ID].IsVerified = true
	return u
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: "alice@example.com", Password: "pass-word-1", UserType: model.UserTypeCitizen,
	})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEqual(t, "pass-word-1", u.PasswordHash)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "pass-word-1"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "dup@example.com", Password: "password1", UserType: model.UserTypeCitizen})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "dup@example.com", Password: "password2", UserType: model.UserTypeCitizen})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginDoesNotRevealWhichPartFailed(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, users, "known@example.com", "correct-password")

	_, errUnknown := svc.Login(ctx, "unknown@example.com", "whatever", "", "")
	_, errWrongPw := svc.Login(ctx, "known@example.com", "wrong-password", "", "")

	// Unknown email and wrong password must be indistinguishable.
	assert.ErrorIs(t, errUnknown, ErrUnauthorized)
	assert.ErrorIs(t, errWrongPw, ErrUnauthorized)
	assert.Equal(t, errUnknown, errWrongPw)
}

func TestLoginUnverifiedEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "new@example.com", Password: "password1", UserType: model.UserTypeCitizen})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "new@example.com", "password1", "", "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, users, tokens := newTestService(t)
	ctx := context.Background()
	u := registerVerified(t, svc, users, "c@example.com", "correct-password")

	res, err := svc.Login(ctx, "c@example.com", "correct-password", "203.0.113.9", "test-agent")
	require.NoError(t, err)

	status, claims := utils.VerifyAccessToken("session-test-secret", res.Access.Token)
	assert.Equal(t, utils.TokenValid, status)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, model.UserTypeCitizen, claims.Role)

	require.Contains(t, tokens.tokens, res.Refresh.Raw)
	assert.Equal(t, u.ID, tokens.tokens[res.Refresh.Raw].userID)
}

func TestRefreshDoesNotRotateToken(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, users, "c@example.com", "correct-password")

	res, err := svc.Login(ctx, "c@example.com", "correct-password", "", "")
	require.NoError(t, err)

	// The same refresh token keeps working across multiple exchanges.
	for i := 0; i < 3; i++ {
		access, err := svc.Refresh(ctx, res.Refresh.Raw)
		require.NoError(t, err)
		status, _ := utils.VerifyAccessToken("session-test-secret", access.Token)
		assert.Equal(t, utils.TokenValid, status)
	}
}

func TestRefreshCollapsesTokenFailures(t *testing.T) {
	svc, users, tokens := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, users, "c@example.com", "correct-password")

	res, err := svc.Login(ctx, "c@example.com", "correct-password", "", "")
	require.NoError(t, err)

	// Unknown token.
	_, err = svc.Refresh(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Expired token.
	tokens.tokens[res.Refresh.Raw].exp = time.Now().Add(-time.Minute)
	_, err = svc.Refresh(ctx, res.Refresh.Raw)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Revoked token.
	tokens.tokens[res.Refresh.Raw].exp = time.Now().Add(time.Hour)
	tokens.tokens[res.Refresh.Raw].revoked = true
	_, err = svc.Refresh(ctx, res.Refresh.Raw)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshRevokedReplayLogsOwner(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	svc := NewSessionService(users, tokens, SessionConfig{
		JWTSecret:      "session-test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 30,
		BcryptCost:     bcrypt.MinCost,
	}, zap.New(core))
	ctx := context.Background()
	u := registerVerified(t, svc, users, "c@example.com", "correct-password")

	res, err := svc.Login(ctx, "c@example.com", "correct-password", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, res.Refresh.Raw))

	_, err = svc.Refresh(ctx, res.Refresh.Raw)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The replay warning names the token's owner, not a zero id.
	entries := logs.FilterMessage("revoked refresh token replayed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, u.ID, entries[0].ContextMap()["user_id"])
}

func TestRefreshDeletedAndInactiveUser(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	u := registerVerified(t, svc, users, "c@example.com", "correct-password")

	res, err := svc.Login(ctx, "c@example.com", "correct-password", "", "")
	require.NoError(t, err)

	users.byID[u.ID].IsActive = false
	_, err = svc.Refresh(ctx, res.Refresh.Raw)
	assert.ErrorIs(t, err, ErrForbidden)

	delete(users.byID, u.ID)
	_, err = svc.Refresh(ctx, res.Refresh.Raw)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	registerVerified(t, svc, users, "c@example.com", "correct-password")

	res, err := svc.Login(ctx, "c@example.com", "correct-password", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Refresh.Raw))
	// Revoking again, or revoking garbage, still succeeds.
	require.NoError(t, svc.Logout(ctx, res.Refresh.Raw))
	require.NoError(t, svc.Logout(ctx, "never-issued"))

	_, err = svc.Refresh(ctx, res.Refresh.Raw)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogoutAllCountsSessions(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	u := registerVerified(t, svc, users, "c@example.com", "correct-password")
	registerVerified(t, svc, users, "other@example.com", "correct-password")

	var raws []string
	for i := 0; i < 3; i++ {
		res, err := svc.Login(ctx, "c@example.com", "correct-password", "", "")
		require.NoError(t, err)
		raws = append(raws, res.Refresh.Raw)
	}
	otherRes, err := svc.Login(ctx, "other@example.com", "correct-password", "", "")
	require.NoError(t, err)

	count, err := svc.LogoutAll(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	for _, raw := range raws {
		_, err := svc.Refresh(ctx, raw)
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	// The other user's session is untouched.
	_, err = svc.Refresh(ctx, otherRes.Refresh.Raw)
	assert.NoError(t, err)

	// A second sweep finds nothing left to revoke.
	count, err = svc.LogoutAll(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
