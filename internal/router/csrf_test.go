package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCSRFTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(CSRFProtection())
	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.POST("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func TestCSRFTokenIssuedOnGet(t *testing.T) {
	r := newCSRFTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-CSRF-Token"))
}

func TestCSRFBlocksPostWithoutToken(t *testing.T) {
	r := newCSRFTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ping", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFAllowsPostWithSessionToken(t *testing.T) {
	r := newCSRFTestRouter()

	// Pick up the session cookie and token from a GET first.
	get := httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/ping", nil))
	token := get.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	cookies := get.Result().Cookies()
	require.NotEmpty(t, cookies)

	post := httptest.NewRequest(http.MethodPost, "/ping", nil)
	post.Header.Set("X-CSRF-Token", token)
	for _, c := range cookies {
		post.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, post)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFBlocksPostWithForeignToken(t *testing.T) {
	r := newCSRFTestRouter()

	get := httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/ping", nil))
	cookies := get.Result().Cookies()

	post := httptest.NewRequest(http.MethodPost, "/ping", nil)
	post.Header.Set("X-CSRF-Token", "someone-elses-token")
	for _, c := range cookies {
		post.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, post)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
