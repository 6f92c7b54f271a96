package handler

import (
	"backend/pkg/apperr"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error to the standard envelope. Domain errors
// carry their kind (and fields like max_allowed) in the payload so clients
// can react without parsing message strings.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if domainErr, ok := apperr.AsError(err); ok {
		c.JSON(status, response.ErrorWithDetails(status, domainErr.Message, domainErr))
		return
	}
	c.JSON(status, response.Error(status, err.Error()))
}
