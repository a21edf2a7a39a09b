package controllers

import (
	"go.uber.org/dig"

	"github.com/draco-cheng/backend-go/internal/services"
)

// ControllerFactory 控制器工厂
type ControllerFactory struct {
	container *dig.Container
}

// NewControllerFactory 创建控制器工厂
func NewControllerFactory(container *dig.Container) *ControllerFactory {
	return &ControllerFactory{
		container: container,
	}
}

// CreateChatController 创建对话控制器
func (f *ControllerFactory) CreateChatController() (*ChatController, error) {
	var ragService *services.RAGService

	err := f.container.Invoke(func(rs *services.RAGService) {
		ragService = rs
	})

	if err != nil {
		return nil, err
	}

	return NewChatController(ragService), nil
}

// CreateDocumentController 创建文档控制器
func (f *ControllerFactory) CreateDocumentController() (*DocumentController, error) {
	var docService *services.DocumentService

	err := f.container.Invoke(func(ds *services.DocumentService) {
		docService = ds
	})

	if err != nil {
		return nil, err
	}

	return NewDocumentController(docService), nil
}
