package handler

import (
	"net/http"

	"librestock/internal/middleware"
	"librestock/internal/rbac"
	"librestock/internal/service"
	"librestock/pkg/pagination"
	"librestock/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	guard       *middleware.Guard
}

func NewUserHandler(userService service.UserService, guard *middleware.Guard) *UserHandler {
	return &UserHandler{userService: userService, guard: guard}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/api/users")
	{
		users.GET("", h.guard.Require(rbac.ResourceUsers, rbac.PermissionRead), h.ListUsers)
		users.GET("/:id", h.guard.Require(rbac.ResourceUsers, rbac.PermissionRead), h.GetUser)
		users.PUT("/:id/roles", h.guard.Require(rbac.ResourceUsers, rbac.PermissionWrite), h.UpdateUserRoles)
	}
}

// RegisterMe mounts /api/me on its own group so main can rate-limit it with
// the other auth-adjacent routes. It carries no permission requirement: any
// authenticated caller may inspect their own grants.
func (h *UserHandler) RegisterMe(router *gin.RouterGroup) {
	router.GET("/api/me", h.Me)
}

// ListUsers returns users with their role names, paginated.
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := pagination.Parse(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), c.Query("search"), params.Offset, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"users": users,
		"meta":  pagination.NewMeta(total, params),
	}))
}

// GetUser returns a single user with their role names.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateUserRoles replaces the user's role assignments with the given set.
func (h *UserHandler) UpdateUserRoles(c *gin.Context) {
	var req service.UpdateUserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.UpdateUserRoles(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// Me returns the caller's profile with resolved roles and permissions.
func (h *UserHandler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Insufficient permissions"))
		return
	}

	current, err := h.userService.GetCurrentUser(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, current))
}
