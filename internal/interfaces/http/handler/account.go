package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/identity"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
)

// Paths of the account pages
const (
	LoginPath         = "/accounts/login/"
	defaultLoginNext  = "/dashboard/"
	defaultLogoutNext = "/"
)

// AccountHandler handles login, logout and token routes
type AccountHandler struct {
	BaseHandler
	auth     *identity.AuthService
	session  config.SessionConfig
	secure   bool
	sameSite http.SameSite
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(auth *identity.AuthService, session config.SessionConfig, security config.SecurityConfig) *AccountHandler {
	return &AccountHandler{
		auth:     auth,
		session:  session,
		secure:   security.SessionCookieSecure,
		sameSite: parseSameSite(session.CookieSameSite),
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	}
	return http.SameSiteDefaultMode
}

// LoginForm describes the login form fields
type LoginForm struct {
	Fields        []string `json:"fields"`
	Next          string   `json:"next"`
	Authenticated bool     `json:"authenticated"`
}

// LoginPage answers the login page
func (h *AccountHandler) LoginPage(c *gin.Context) {
	h.Success(c, LoginForm{
		Fields:        []string{"email", "password", "next"},
		Next:          safeNext(c.Query("next"), defaultLoginNext),
		Authenticated: currentClaims(c) != nil,
	})
}

// Login checks the credentials, sets the session cookie and continues to next
func (h *AccountHandler) Login(c *gin.Context) {
	var req identity.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.startSession(c, result)

	if wantsJSON(c) {
		h.Success(c, result)
		return
	}
	c.Redirect(http.StatusFound, safeNext(req.Next, defaultLoginNext))
}

// Signup creates an account and signs it in
func (h *AccountHandler) Signup(c *gin.Context) {
	var req identity.SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.auth.Signup(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.startSession(c, result)
	h.Created(c, result)
}

// Logout revokes the current token and clears the session cookie
func (h *AccountHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	c.SetSameSite(h.sameSite)
	c.SetCookie(h.session.CookieName, "", -1, "/", "", h.secure, h.session.CookieHTTPOnly)

	if wantsJSON(c) {
		h.Success(c, MessageData{Message: "Logged out"})
		return
	}
	c.Redirect(http.StatusFound, safeNext(c.Query("next"), defaultLogoutNext))
}

// Me returns the signed-in user
func (h *AccountHandler) Me(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), currentClaims(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Token issues a long-lived API token for the signed-in user
func (h *AccountHandler) Token(c *gin.Context) {
	claims := currentClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid token subject")
		return
	}
	token, err := h.auth.IssueAPIToken(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, token)
}

func (h *AccountHandler) startSession(c *gin.Context, result *identity.LoginResult) {
	c.SetSameSite(h.sameSite)
	c.SetCookie(h.session.CookieName, result.Token, int(h.session.CookieAge.Seconds()), "/", "", h.secure, h.session.CookieHTTPOnly)
}

// safeNext only follows local paths so the login page cannot be used as an open redirect
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
