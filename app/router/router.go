package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/draco-cheng/backend-go/app/bootstrap"
	"github.com/draco-cheng/backend-go/app/controllers"
	"github.com/draco-cheng/backend-go/app/middleware"
	"github.com/draco-cheng/backend-go/internal/config"
)

// Init registers all routes. Must be called after config is loaded.
// Controllers are resolved from the DI container through the factory.
func Init(app *bootstrap.App) error {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/api/ping", &controllers.HealthController{}, "get:Ping")

	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	factory := controllers.NewControllerFactory(app.Container())

	// 对话路由
	chatController, err := factory.CreateChatController()
	if err != nil {
		return err
	}
	web.Router("/api/chat", chatController, "post:Post")

	// 文档管理路由
	// 注意：具体路由必须在参数路由之前，否则/stats/storage会被:id匹配
	documentController, err := factory.CreateDocumentController()
	if err != nil {
		return err
	}
	web.Router("/api/admin/documents/stats/storage", documentController, "get:Stats")
	web.Router("/api/admin/documents/upload", documentController, "post:Upload")
	web.Router("/api/admin/documents", documentController, "get:List")
	web.Router("/api/admin/documents/:id", documentController, "get:Get;delete:Delete")

	web.InsertFilter("/api/admin/documents", web.BeforeRouter, middleware.AdminAuthMiddleware)
	web.InsertFilter("/api/admin/documents/*", web.BeforeRouter, middleware.AdminAuthMiddleware)

	// 指标暴露端点
	if cfg := config.GetAppConfig(); cfg != nil && cfg.Metrics.Enabled {
		web.Handler("/metrics", app.Metrics().Handler())
	}

	return nil
}
