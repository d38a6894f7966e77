package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"librestock/internal/model"
	"librestock/internal/rbac"
	"librestock/internal/repository"
	"librestock/internal/service"
	"librestock/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHookRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zap.NewNop()

	roleRepo := repository.NewRoleRepository(db)
	tx := repository.NewTransactionManager(db, testutil.NewMutexLocker())
	roleService := service.NewRoleService(roleRepo, tx, log)
	require.NoError(t, roleService.Seed(context.Background()))

	bootstrap := service.NewBootstrapService(roleRepo, tx, log)

	router := gin.New()
	NewHookHandler(bootstrap, log).RegisterRoutes(router.Group(""))
	return router, db
}

func postUserCreated(router *gin.Engine, userID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	body := bytes.NewBufferString(fmt.Sprintf(`{"user_id": %q}`, userID))
	req := httptest.NewRequest(http.MethodPost, "/internal/hooks/user-created", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func adminAssignmentCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	err := db.Model(&model.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", rbac.AdminRoleName).
		Count(&count).Error
	require.NoError(t, err)
	return count
}

func TestUserCreatedHook_PromotesFirstUser(t *testing.T) {
	router, db := newHookRouter(t)

	w := postUserCreated(router, uuid.NewString())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), adminAssignmentCount(t, db))
}

func TestUserCreatedHook_SecondUserNotPromoted(t *testing.T) {
	router, db := newHookRouter(t)

	first := postUserCreated(router, uuid.NewString())
	require.Equal(t, http.StatusOK, first.Code)

	second := postUserCreated(router, uuid.NewString())
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, int64(1), adminAssignmentCount(t, db))
}

func TestUserCreatedHook_RejectsMalformedPayload(t *testing.T) {
	router, db := newHookRouter(t)

	w := postUserCreated(router, "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(0), adminAssignmentCount(t, db))
}
