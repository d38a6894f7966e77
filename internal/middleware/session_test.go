package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"librestock/internal/model"
	"librestock/internal/repository"
	"librestock/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSessionRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	users := repository.NewUserRepository(db)

	router := gin.New()
	router.Use(SessionLoader(users, zap.NewNop()))
	router.GET("/whoami", func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"user_id": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID.String()})
	})
	return router, db
}

func createSession(t *testing.T, db *gorm.DB, token string, expiresAt time.Time) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	session := model.Session{UserID: userID, Token: token, ExpiresAt: expiresAt}
	require.NoError(t, db.Create(&session).Error)
	return userID
}

func TestSessionLoader_CookieToken(t *testing.T) {
	router, db := newSessionRouter(t)
	userID := createSession(t, db, "tok-cookie", time.Now().Add(time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok-cookie"})
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), userID.String())
}

func TestSessionLoader_BearerToken(t *testing.T) {
	router, db := newSessionRouter(t)
	userID := createSession(t, db, "tok-bearer", time.Now().Add(time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer tok-bearer")
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), userID.String())
}

func TestSessionLoader_ExpiredSessionIgnored(t *testing.T) {
	router, db := newSessionRouter(t)
	createSession(t, db, "tok-expired", time.Now().Add(-time.Minute))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok-expired"})
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "null")
}

func TestSessionLoader_NoTokenContinues(t *testing.T) {
	router, _ := newSessionRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "null")
}
