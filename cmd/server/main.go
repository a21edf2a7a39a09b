package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/draco-cheng/backend-go/app/bootstrap"
	"github.com/draco-cheng/backend-go/app/router"
	"github.com/draco-cheng/backend-go/internal/config"
	"github.com/draco-cheng/backend-go/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()
	bootstrap.SetGlobalApp(app)

	if err := router.Init(app); err != nil {
		log.Fatalf("failed to register routes: %v", err)
	}

	// 配置Beego全局设置
	web.BConfig.AppName = "Portfolio RAG Backend"
	web.BConfig.CopyRequestBody = true
	web.BConfig.MaxMemory = config.GetAppConfig().Upload.MaxUploadBytes()

	if p, err := strconv.Atoi(config.GetAppConfig().Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = p
	} else {
		web.BConfig.Listen.HTTPPort = 8000
	}

	logger.Info("🚀 Starting Portfolio RAG Backend", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
