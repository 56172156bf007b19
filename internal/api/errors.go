package api

import (
	"net/http"

	"campus-marketplace/internal/models"
	"campus-marketplace/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByCode = map[string]int{
	"NOT_FOUND":             http.StatusNotFound,
	"FORBIDDEN":             http.StatusForbidden,
	"SELF_PURCHASE":         http.StatusUnprocessableEntity,
	"NOT_AVAILABLE":         http.StatusConflict,
	"DUPLICATE_TRANSACTION": http.StatusConflict,
	"INVALID_STATE":         http.StatusConflict,
	"INVALID_STATUS":        http.StatusBadRequest,
	"VALIDATION_ERROR":      http.StatusBadRequest,
	"TIMEOUT":               http.StatusGatewayTimeout,
}

// writeError maps a lifecycle error to its HTTP status and error body
func writeError(c *gin.Context, err error) {
	code := models.ErrorCode(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		util.GetLogger().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   code,
		"details": err.Error(),
	})
}

// bindJSON decodes the body into req and answers 400 when it does not fit
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "VALIDATION_ERROR",
			"details": err.Error(),
		})
		return false
	}
	return true
}
