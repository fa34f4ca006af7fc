package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/identity"
	"github.com/stockitup/backend/internal/infrastructure/auth"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountRouter(app *testApp) *gin.Engine {
	h := NewAccountHandler(app.auth, app.cfg.Session, app.cfg.Security)
	r := app.engine()
	r.GET("/accounts/login/", h.LoginPage)
	r.POST("/accounts/login/", h.Login)
	r.POST("/accounts/signup/", h.Signup)
	r.POST("/accounts/logout/", h.Logout)
	r.GET("/accounts/me/", h.Me)
	r.POST("/accounts/token/", h.Token)
	return r
}

func sessionCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAccountHandler_LoginPage(t *testing.T) {
	app := newTestApp(t)
	r := accountRouter(app)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/login/?next=/orders/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var form LoginForm
	decodeData(t, w, &form)
	assert.Equal(t, "/orders/", form.Next)
	assert.False(t, form.Authenticated)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/login/?next=https://evil.example/", nil))
	decodeData(t, w, &form)
	assert.Equal(t, "/dashboard/", form.Next)
}

func TestAccountHandler_Login(t *testing.T) {
	app := newTestApp(t)
	r := accountRouter(app)

	t.Run("form login redirects to next", func(t *testing.T) {
		form := url.Values{"email": {"staff@example.com"}, "password": {testPassword}, "next": {"/orders/"}}
		w := postForm(r, "/accounts/login/", form)
		require.Equal(t, http.StatusFound, w.Code, w.Body.String())
		assert.Equal(t, "/orders/", w.Header().Get("Location"))

		cookie := sessionCookie(w, app.cfg.Session.CookieName)
		require.NotNil(t, cookie)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, int(app.cfg.Session.CookieAge.Seconds()), cookie.MaxAge)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	})

	t.Run("open redirect is refused", func(t *testing.T) {
		form := url.Values{"email": {"staff@example.com"}, "password": {testPassword}}
		w := postForm(r, "/accounts/login/?next=//evil.example/", form)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/dashboard/", w.Header().Get("Location"))
	})

	t.Run("json login returns the token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/accounts/login/",
			strings.NewReader(`{"email":"staff@example.com","password":"`+testPassword+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result identity.LoginResult
		decodeData(t, w, &result)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, "staff@example.com", result.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postForm(r, "/accounts/login/", url.Values{"email": {"staff@example.com"}, "password": {"nope"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidCredentials, decodeResponse(t, w).Error.Code)
		assert.Nil(t, sessionCookie(w, app.cfg.Session.CookieName))
	})

	t.Run("invalid email", func(t *testing.T) {
		w := postForm(r, "/accounts/login/", url.Values{"email": {"staff"}, "password": {"x"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAccountHandler_SessionCookieAuthenticates(t *testing.T) {
	app := newTestApp(t)
	r := accountRouter(app)

	w := postForm(r, "/accounts/login/", url.Values{"email": {"staff@example.com"}, "password": {testPassword}})
	cookie := sessionCookie(w, app.cfg.Session.CookieName)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/accounts/me/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var me identity.UserInfo
	decodeData(t, w, &me)
	assert.Equal(t, "staff@example.com", me.Email)
}

func TestAccountHandler_Signup(t *testing.T) {
	app := newTestApp(t)
	r := accountRouter(app)

	w := postForm(r, "/accounts/signup/", url.Values{"email": {"nieuw@example.com"}, "name": {"Nieuw"}, "password": {"lang-genoeg-1"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotNil(t, sessionCookie(w, app.cfg.Session.CookieName))

	w = postForm(r, "/accounts/signup/", url.Values{"email": {"nieuw@example.com"}, "password": {"lang-genoeg-1"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postForm(r, "/accounts/signup/", url.Values{"email": {"kort@example.com"}, "password": {"kort"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandler_Logout(t *testing.T) {
	app := newTestApp(t)
	r := accountRouter(app)

	w := app.request(r, http.MethodPost, "/accounts/logout/", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cleared := sessionCookie(w, app.cfg.Session.CookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	w = app.request(r, http.MethodGet, "/accounts/me/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "the revoked token no longer authenticates")

	t.Run("browser logout redirects home", func(t *testing.T) {
		w := postForm(r, "/accounts/logout/", nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestAccountHandler_Token(t *testing.T) {
	app := newTestApp(t)
	r := accountRouter(app)

	w := app.request(r, http.MethodPost, "/accounts/token/", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var issued auth.IssuedToken
	decodeData(t, w, &issued)
	require.NotEmpty(t, issued.Token)

	req := httptest.NewRequest(http.MethodGet, "/accounts/me/", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postForm(r, "/accounts/token/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
