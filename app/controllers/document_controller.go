package controllers

import (
	"io"
	"net/http"

	"github.com/draco-cheng/backend-go/app/bootstrap"
	"github.com/draco-cheng/backend-go/internal/services"
)

// DocumentController 文档管理控制器
type DocumentController struct {
	BaseController
	docService *services.DocumentService
}

// NewDocumentController 创建文档控制器
func NewDocumentController(docService *services.DocumentService) *DocumentController {
	return &DocumentController{docService: docService}
}

func (c *DocumentController) service() *services.DocumentService {
	if c.docService != nil {
		return c.docService
	}
	return bootstrap.GetApp().DocumentService()
}

// Upload 上传并入库文档
func (c *DocumentController) Upload() {
	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "Missing file in form data")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	result, err := c.service().Upload(c.Ctx.Request.Context(), header.Filename, data)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// List 列出已入库文档
func (c *DocumentController) List() {
	docs, err := c.service().ListDocuments(c.Ctx.Request.Context())
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}

// Get 获取文档详情
func (c *DocumentController) Get() {
	documentID := c.Ctx.Input.Param(":id")
	if documentID == "" {
		c.JSONError(http.StatusBadRequest, "Document id is required")
		return
	}

	doc, err := c.service().GetDocument(c.Ctx.Request.Context(), documentID)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Delete 删除文档
func (c *DocumentController) Delete() {
	documentID := c.Ctx.Input.Param(":id")
	if documentID == "" {
		c.JSONError(http.StatusBadRequest, "Document id is required")
		return
	}

	result, err := c.service().DeleteDocument(c.Ctx.Request.Context(), documentID)
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Stats 存储统计
func (c *DocumentController) Stats() {
	stats, err := c.service().StorageStats(c.Ctx.Request.Context())
	if err != nil {
		c.handleServiceError(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
