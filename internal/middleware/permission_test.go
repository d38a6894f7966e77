package middleware

import (
	"context"
	"errors"
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

// identityInjector simulates SessionLoader for a fixed user.
func identityInjector(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetIdentity(c, Identity{UserID: userID, SessionID: uuid.New()})
		c.Next()
	}
}

func newGateFixture(t *testing.T) (service.RoleService, repository.RoleRepository, *Guard, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	repo := repository.NewRoleRepository(db)
	tx := repository.NewTransactionManager(db, testutil.NewMutexLocker())
	svc := service.NewRoleService(repo, tx, zap.NewNop())
	require.NoError(t, svc.Seed(context.Background()))
	return svc, repo, NewGuard(svc, zap.NewNop()), db
}

func performGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGuard_SalesSeedPermissions(t *testing.T) {
	_, repo, guard, _ := newGateFixture(t)
	ctx := context.Background()

	sales, err := repo.FindByName(ctx, "Sales")
	require.NoError(t, err)
	userID := uuid.New()
	require.NoError(t, repo.AssignRole(ctx, userID, sales.ID))

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	router := gin.New()
	router.Use(identityInjector(userID))
	router.GET("/read", guard.Require(rbac.ResourceProducts, rbac.PermissionRead), ok)
	router.GET("/write", guard.Require(rbac.ResourceProducts, rbac.PermissionWrite), ok)

	assert.Equal(t, http.StatusOK, performGet(router, "/read").Code)
	assert.Equal(t, http.StatusForbidden, performGet(router, "/write").Code)
}

func TestGuard_MissingIdentityForbidden(t *testing.T) {
	_, _, guard, _ := newGateFixture(t)

	router := gin.New()
	router.GET("/protected", guard.Require(rbac.ResourceDashboard, rbac.PermissionRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := performGet(router, "/protected")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGuard_UndeclaredRouteIsOpen(t *testing.T) {
	// A route that attaches no Require middleware is reachable without any
	// identity at all.
	router := gin.New()
	router.GET("/open", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, performGet(router, "/open").Code)
}

type failingResolver struct{}

func (failingResolver) ResolvePermissions(context.Context, uuid.UUID) (*service.ResolvedPermissions, error) {
	return nil, errors.New("pq: connection refused")
}

func TestGuard_ResolverFailureIsInternalAndGeneric(t *testing.T) {
	guard := NewGuard(failingResolver{}, zap.NewNop())

	router := gin.New()
	router.Use(identityInjector(uuid.New()))
	router.GET("/protected", guard.Require(rbac.ResourceStock, rbac.PermissionRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := performGet(router, "/protected")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// Storage detail must never reach the client.
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestGuard_IgnoresUnknownStoredSymbols(t *testing.T) {
	svc, repo, guard, db := newGateFixture(t)
	ctx := context.Background()

	// Simulate a partially migrated row: a grant symbol outside the catalog.
	role, err := svc.CreateRole(ctx, service.CreateRoleRequest{
		Name:        "Legacy",
		Permissions: []service.PermissionInput{{Resource: "stock", Permission: "read"}},
	})
	require.NoError(t, err)
	roleID := uuid.MustParse(role.ID)
	require.NoError(t, db.Create(&model.RolePermission{RoleID: roleID, Resource: "warehouse", Permission: "approve"}).Error)

	userID := uuid.New()
	require.NoError(t, repo.AssignRole(ctx, userID, roleID))

	resolved, err := svc.ResolvePermissions(ctx, userID)
	require.NoError(t, err)
	assert.True(t, resolved.Has(rbac.ResourceStock, rbac.PermissionRead))
	assert.Len(t, resolved.Permissions, 1)

	router := gin.New()
	router.Use(identityInjector(userID))
	router.GET("/read", guard.Require(rbac.ResourceStock, rbac.PermissionRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, performGet(router, "/read").Code)
}
