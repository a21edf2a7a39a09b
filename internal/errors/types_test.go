package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorHTTPCodes(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewValidationError("bad").HTTPCode)
	assert.Equal(t, http.StatusBadRequest, NewFileTooLargeError("big").HTTPCode)
	assert.Equal(t, http.StatusNotFound, NewNotFoundError("Document x").HTTPCode)
	assert.Equal(t, http.StatusServiceUnavailable, NewDependencyUnavailableError("vector store").HTTPCode)
	assert.Equal(t, http.StatusBadGateway, NewUpstreamError("embedding", nil).HTTPCode)
	assert.Equal(t, http.StatusUnprocessableEntity, NewExtractionError("parse failed").HTTPCode)
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewUpstreamError("vector search", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "vector search failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetAppError(t *testing.T) {
	appErr := NewValidationError("bad input")
	assert.Equal(t, appErr, GetAppError(appErr))
	assert.True(t, IsAppError(appErr))

	// 非AppError被包装为500系统错误并保留原因
	plain := errors.New("plain")
	wrapped := GetAppError(plain)
	assert.Equal(t, ErrCodeInternalServer, wrapped.Code)
	assert.Equal(t, http.StatusInternalServerError, wrapped.HTTPCode)
	assert.ErrorIs(t, wrapped, plain)
	assert.False(t, IsAppError(plain))
}

func TestNotFoundMessage(t *testing.T) {
	err := NewNotFoundError("Document abc")
	assert.Equal(t, "Document abc not found", err.Message)
}
