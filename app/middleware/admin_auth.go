package middleware

import (
	"net/http"

	"github.com/beego/beego/v2/server/web/context"

	"github.com/draco-cheng/backend-go/internal/config"
)

// AdminAuthMiddleware 管理接口鉴权
// 仅对写操作（上传、删除）校验X-API-Key，读接口开放
func AdminAuthMiddleware(ctx *context.Context) {
	method := ctx.Input.Method()
	if method != http.MethodPost && method != http.MethodDelete {
		return
	}

	adminKey := ""
	if cfg := config.GetAppConfig(); cfg != nil {
		adminKey = cfg.Admin.APIKey
	}

	if adminKey == "" {
		writeAuthError(ctx, http.StatusServiceUnavailable, "Admin API key not configured on server")
		return
	}

	apiKey := ctx.Input.Header("X-API-Key")
	if apiKey == "" {
		writeAuthError(ctx, http.StatusUnauthorized, "Missing X-API-Key header")
		return
	}
	if apiKey != adminKey {
		writeAuthError(ctx, http.StatusForbidden, "Invalid API key")
		return
	}
}

func writeAuthError(ctx *context.Context, status int, message string) {
	ctx.Output.SetStatus(status)
	_ = ctx.Output.JSON(map[string]interface{}{
		"success": false,
		"error":   message,
	}, false, false)
}
