package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/draco-cheng/backend-go/app/bootstrap"
	"github.com/draco-cheng/backend-go/internal/services"
)

var chatValidate = validator.New()

// ChatController 对话控制器
type ChatController struct {
	BaseController
	ragService *services.RAGService
}

// NewChatController 创建对话控制器
func NewChatController(ragService *services.RAGService) *ChatController {
	return &ChatController{ragService: ragService}
}

// service Beego按类型重建控制器实例，注入的字段可能为空，
// 此时回退到全局App获取服务
func (c *ChatController) service() *services.RAGService {
	if c.ragService != nil {
		return c.ragService
	}
	return bootstrap.GetApp().RAGService()
}

// Post 处理对话请求
func (c *ChatController) Post() {
	var req services.ChatRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := chatValidate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	resp, err := c.service().Chat(c.Ctx.Request.Context(), &req)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
