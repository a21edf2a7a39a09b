package controllers

import (
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	apperrors "github.com/draco-cheng/backend-go/internal/errors"
	"github.com/draco-cheng/backend-go/internal/logger"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// handleServiceError maps service errors to HTTP responses. Typed errors
// carry their own status code; anything else becomes a 500.
func (c *BaseController) handleServiceError(err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		if appErr.HTTPCode >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Ctx.Request.RequestURI),
				zap.String("code", string(appErr.Code)),
				zap.Error(err))
		}
		c.JSONError(appErr.HTTPCode, appErr.Message)
		return
	}

	logger.Error("unexpected error",
		zap.String("path", c.Ctx.Request.RequestURI),
		zap.Error(err))
	c.JSONError(http.StatusInternalServerError, "Internal server error")
}
