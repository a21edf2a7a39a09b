package di

import (
	"fmt"

	"go.uber.org/dig"
)

// BuildContainer 创建并初始化依赖注入容器
func BuildContainer() (*dig.Container, error) {
	container := dig.New()
	if err := RegisterProviders(container); err != nil {
		return nil, fmt.Errorf("failed to register providers: %w", err)
	}
	return container, nil
}
