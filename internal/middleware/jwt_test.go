package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civictrack/road-registry/internal/model"
	"github.com/civictrack/road-registry/internal/utils"
)

const mwSecret = "middleware-test-secret"

type stubUsers struct {
	byID map[uint64]*model.User
}

func (s *stubUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func runProtected(t *testing.T, users UserLoader, authorization string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTAuth(mwSecret, users)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	u := &model.User{ID: 9, Email: "i@example.com", UserType: model.UserTypeInspector, IsActive: true}
	users := &stubUsers{byID: map[uint64]*model.User{9: u}}

	access, err := utils.NewAccessToken(mwSecret, 9, u.Email, u.UserType, 15)
	require.NoError(t, err)

	rec, c := runProtected(t, users, "Bearer "+access.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u, c.Get("user"))
	assert.Equal(t, uint64(9), c.Get("user_id"))
	assert.Equal(t, model.UserTypeInspector, c.Get("role"))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := runProtected(t, &stubUsers{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")
}

func TestJWTAuthExpiredVsInvalid(t *testing.T) {
	users := &stubUsers{byID: map[uint64]*model.User{}}

	expired, err := utils.NewAccessToken(mwSecret, 9, "i@example.com", "inspector", -1)
	require.NoError(t, err)
	rec, _ := runProtected(t, users, "Bearer "+expired.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "access token expired")

	rec, _ = runProtected(t, users, "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestJWTAuthUserGoneOrInactive(t *testing.T) {
	access, err := utils.NewAccessToken(mwSecret, 9, "i@example.com", "inspector", 15)
	require.NoError(t, err)

	// Token is genuine but the user row no longer exists.
	rec, _ := runProtected(t, &stubUsers{byID: map[uint64]*model.User{}}, "Bearer "+access.Token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Deactivated account.
	inactive := &model.User{ID: 9, IsActive: false}
	rec, _ = runProtected(t, &stubUsers{byID: map[uint64]*model.User{9: inactive}}, "Bearer "+access.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := RequireRole(model.UserTypeManager)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	run := func(role any) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/employee/roads", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != nil {
			c.Set("role", role)
		}
		require.NoError(t, handler(c))
		return rec
	}

	assert.Equal(t, http.StatusOK, run(model.UserTypeManager).Code)
	assert.Equal(t, http.StatusForbidden, run(model.UserTypeCitizen).Code)
	assert.Equal(t, http.StatusForbidden, run(nil).Code)
}
