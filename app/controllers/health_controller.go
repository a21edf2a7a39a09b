package controllers

import "net/http"

// RootController 根路径控制器
type RootController struct {
	BaseController
}

// Index 服务标识
func (c *RootController) Index() {
	c.JSON(http.StatusOK, map[string]interface{}{
		"service": "portfolio-rag-backend",
		"status":  "running",
	})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

// Health 健康检查端点
func (c *HealthController) Health() {
	c.JSON(http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

// Ping 前后端联调用的简单探活端点
func (c *HealthController) Ping() {
	c.JSON(http.StatusOK, map[string]interface{}{
		"result": "pong",
	})
}
