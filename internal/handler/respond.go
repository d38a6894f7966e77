package handler

import (
	"net/http"

	"librestock/pkg/apperror"
	"librestock/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError translates a service error into the API envelope. Internal
// errors get a generic message; their detail belongs in the logs only.
func respondError(c *gin.Context, err error) {
	status := apperror.KindOf(err).HTTPStatus()
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	c.JSON(status, response.Error(status, message))
}
