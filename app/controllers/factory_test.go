package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"github.com/draco-cheng/backend-go/internal/config"
	"github.com/draco-cheng/backend-go/internal/services"
)

func newFactoryTestContainer(t *testing.T) *dig.Container {
	t.Helper()

	cfg := &config.Config{}
	ragService := services.NewRAGService(cfg, nil, nil, nil, nil, nil)
	docService := services.NewDocumentService(cfg, nil, nil, nil, nil, nil, nil)

	container := dig.New()
	require.NoError(t, container.Provide(func() *services.RAGService { return ragService }))
	require.NoError(t, container.Provide(func() *services.DocumentService { return docService }))
	return container
}

func TestFactoryCreatesControllersWithServices(t *testing.T) {
	factory := NewControllerFactory(newFactoryTestContainer(t))

	chatController, err := factory.CreateChatController()
	require.NoError(t, err)
	require.NotNil(t, chatController)
	assert.NotNil(t, chatController.ragService)

	documentController, err := factory.CreateDocumentController()
	require.NoError(t, err)
	require.NotNil(t, documentController)
	assert.NotNil(t, documentController.docService)
}

func TestFactoryFailsOnMissingDependency(t *testing.T) {
	factory := NewControllerFactory(dig.New())

	chatController, err := factory.CreateChatController()
	assert.Error(t, err)
	assert.Nil(t, chatController)

	documentController, err := factory.CreateDocumentController()
	assert.Error(t, err)
	assert.Nil(t, documentController)
}
