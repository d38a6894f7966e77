package handler

import (
	"net/http"

	"librestock/internal/middleware"
	"librestock/internal/rbac"
	"librestock/internal/service"
	"librestock/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
	guard       *middleware.Guard
}

func NewRoleHandler(roleService service.RoleService, guard *middleware.Guard) *RoleHandler {
	return &RoleHandler{roleService: roleService, guard: guard}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/api/roles")
	{
		roles.GET("", h.guard.Require(rbac.ResourceRoles, rbac.PermissionRead), h.ListRoles)
		roles.GET("/:id", h.guard.Require(rbac.ResourceRoles, rbac.PermissionRead), h.GetRole)
		roles.POST("", h.guard.Require(rbac.ResourceRoles, rbac.PermissionWrite), h.CreateRole)
		roles.PUT("/:id", h.guard.Require(rbac.ResourceRoles, rbac.PermissionWrite), h.UpdateRole)
		roles.DELETE("/:id", h.guard.Require(rbac.ResourceRoles, rbac.PermissionWrite), h.DeleteRole)
	}

	// Catalog for the role editor: which grants can be assigned at all.
	perms := router.Group("/api/permissions")
	perms.GET("", h.guard.Require(rbac.ResourceRoles, rbac.PermissionRead), h.ListPermissions)
}

// ListRoles returns all roles with their permissions, sorted by name.
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// GetRole returns a single role by ID.
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roleService.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// CreateRole creates a new custom role with its permission set.
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// UpdateRole updates name, description and/or replaces the permission set.
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// DeleteRole deletes a non-system role and its assignments.
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.roleService.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

type catalogEntry struct {
	Resource    rbac.Resource     `json:"resource"`
	Permissions []rbac.Permission `json:"permissions"`
}

// ListPermissions returns the closed permission catalog.
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	catalog := make([]catalogEntry, 0, len(rbac.Resources()))
	for _, r := range rbac.Resources() {
		catalog = append(catalog, catalogEntry{Resource: r, Permissions: rbac.Permissions()})
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, catalog))
}
