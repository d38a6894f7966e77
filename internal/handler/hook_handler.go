package handler

import (
	"net/http"

	"librestock/internal/service"
	"librestock/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HookHandler receives lifecycle callbacks from the external auth service.
// The routes live under /internal and must not be exposed publicly.
type HookHandler struct {
	bootstrap service.BootstrapService
	log       *zap.Logger
}

func NewHookHandler(bootstrap service.BootstrapService, log *zap.Logger) *HookHandler {
	return &HookHandler{bootstrap: bootstrap, log: log}
}

func (h *HookHandler) RegisterRoutes(router *gin.RouterGroup) {
	hooks := router.Group("/internal/hooks")
	hooks.POST("/user-created", h.UserCreated)
}

type userCreatedRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// UserCreated is invoked synchronously by the auth service after it commits a
// new user. A non-2xx response tells the provider the hook failed; promotion
// is idempotent, so the provider may simply retry.
func (h *HookHandler) UserCreated(c *gin.Context) {
	var req userCreatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid user id"))
		return
	}

	if err := h.bootstrap.HandleUserCreated(c.Request.Context(), userID); err != nil {
		h.log.Error("user-created hook failed", zap.String("user_id", req.UserID), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"processed": true}))
}
