package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionTestRouter(capture func(c *gin.Context)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Session())
	r.GET("/probe", func(c *gin.Context) {
		capture(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestSession_MintsIDForNewVisitor(t *testing.T) {
	var sessionID string
	r := sessionTestRouter(func(c *gin.Context) {
		sessionID = GetSessionID(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	r.ServeHTTP(w, req)

	require.NotEmpty(t, sessionID)
	_, err := uuid.Parse(sessionID)
	assert.NoError(t, err)

	// The minted ID is handed back as a cookie
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, sessionID, cookies[0].Value)
}

func TestSession_ReusesCookie(t *testing.T) {
	existing := uuid.NewString()
	var sessionID string
	r := sessionTestRouter(func(c *gin.Context) {
		sessionID = GetSessionID(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: existing})
	r.ServeHTTP(w, req)

	assert.Equal(t, existing, sessionID)
	assert.Empty(t, w.Result().Cookies())
}

func TestSession_HeaderTakesPrecedence(t *testing.T) {
	fromHeader := uuid.NewString()
	var sessionID string
	r := sessionTestRouter(func(c *gin.Context) {
		sessionID = GetSessionID(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(SessionHeaderName, fromHeader)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: uuid.NewString()})
	r.ServeHTTP(w, req)

	assert.Equal(t, fromHeader, sessionID)
}

func TestSession_UserID(t *testing.T) {
	userID := uuid.New()
	var gotID uuid.UUID
	var signedIn bool
	r := sessionTestRouter(func(c *gin.Context) {
		gotID, signedIn = GetUserID(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(UserHeaderName, userID.String())
	r.ServeHTTP(w, req)

	assert.True(t, signedIn)
	assert.Equal(t, userID, gotID)
}

func TestSession_GuestHasNoUserID(t *testing.T) {
	var signedIn bool
	r := sessionTestRouter(func(c *gin.Context) {
		_, signedIn = GetUserID(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	assert.False(t, signedIn)
}

func TestSession_GarbageUserIDIgnored(t *testing.T) {
	var signedIn bool
	r := sessionTestRouter(func(c *gin.Context) {
		_, signedIn = GetUserID(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(UserHeaderName, "not-a-uuid")
	r.ServeHTTP(w, req)

	assert.False(t, signedIn)
}
