package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civictrack/road-registry/internal/model"
	"github.com/civictrack/road-registry/internal/service"
)

// AuthHandler exposes the session endpoints: register, login, refresh,
// logout, logout-all and the authenticated profile.
type AuthHandler struct {
	Sessions *service.SessionService
}

func NewAuthHandler(s *service.SessionService) *AuthHandler {
	return &AuthHandler{Sessions: s}
}

// ----- DTOs -----

type registerReq struct {
	Email    string  `json:"email" validate:"required,email"`
	Name     string  `json:"name" validate:"required,max=100"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Age      int     `json:"age" validate:"omitempty,gte=0,lte=150"`
	Phone    *string `json:"phone"`
	UserType string  `json:"user_type" validate:"omitempty,oneof=citizen manager inspector builder"`
}

// loginReq follows the OAuth2 password-grant field names: the username field
// carries the email address.
type loginReq struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// userResponse is the public projection of a user.  The password hash is
// deliberately absent and must never be added here.
type userResponse struct {
	UserID             uint64    `json:"user_id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	Phone              *string   `json:"phone,omitempty"`
	Age                int       `json:"age,omitempty"`
	UserType           string    `json:"user_type"`
	IsVerified         bool      `json:"is_verified"`
	IsActive           bool      `json:"is_active"`
	TotalContributions int       `json:"total_contributions"`
	CreatedAt          time.Time `json:"created_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		UserID:             u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Phone:              u.Phone,
		Age:                u.Age,
		UserType:           u.UserType,
		IsVerified:         u.IsVerified,
		IsActive:           u.IsActive,
		TotalContributions: u.TotalContributions,
		CreatedAt:          u.CreatedAt,
	}
}

type loginResp struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	User         userResponse `json:"user"`
}

type refreshResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates a new account.  The password is hashed by the session
// service; 409 signals a duplicate email.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.UserType == "" {
		req.UserType = model.UserTypeCitizen
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Sessions.Register(ctx, service.RegisterInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
		Phone:    req.Phone,
		UserType: req.UserType,
	})
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "a user with same email exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, toUserResponse(u))
}

// Login verifies credentials and returns an access/refresh token pair.  The
// same 401 covers unknown email and wrong password so the response never
// reveals which part failed.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Sessions.Login(ctx, req.Username, req.Password,
		c.RealIP(), c.Request().UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "email not verified"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		AccessToken:  res.Access.Token,
		RefreshToken: res.Refresh.Raw,
		TokenType:    "bearer",
		User:         toUserResponse(res.User),
	})
}

// Refresh exchanges a refresh token for a new access token.  The refresh
// token itself is not rotated and stays valid until expiry or revocation.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := h.Sessions.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token has expired or been revoked"})
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "user account is inactive"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, refreshResp{AccessToken: access.Token, TokenType: "bearer"})
}

// Logout revokes the presented refresh token.  It always reports success,
// even when the token was already invalid or missing.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := reqCtx(c)
	defer cancel()

	_ = h.Sessions.Logout(ctx, strings.TrimSpace(req.RefreshToken))
	return c.JSON(http.StatusOK, echo.Map{"message": "successfully logged out"})
}

// LogoutAll revokes every active refresh token of the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	count, err := h.Sessions.LogoutAll(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("successfully logged out from %d device(s)", count),
	})
}

// Me returns the authenticated user's profile as loaded by the auth
// middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := c.Get("user").(*model.User)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// reqCtx bounds the duration of database calls made on behalf of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
