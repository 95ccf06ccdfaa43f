package handler

import (
	"context"
	"errors"

	"github.com/fyerfyer/ko-doc-search/api/middleware"
	"github.com/fyerfyer/ko-doc-search/api/model"
	"github.com/fyerfyer/ko-doc-search/internal/document"
	"github.com/fyerfyer/ko-doc-search/internal/index"
	"github.com/fyerfyer/ko-doc-search/internal/models"
	"github.com/fyerfyer/ko-doc-search/internal/services"
	"github.com/fyerfyer/ko-doc-search/pkg/storage"
	"github.com/fyerfyer/ko-doc-search/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

// toAppError 把服务层错误映射为API错误
func toAppError(err error, fallback string) middleware.AppError {
	var appErr middleware.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, services.ErrEmptyQuery),
		errors.Is(err, services.ErrEmptyText),
		errors.Is(err, index.ErrInvalidQuery):
		appErr = middleware.NewValidationError("invalid request", err.Error())
	case errors.Is(err, document.ErrUnsupportedType):
		appErr = middleware.NewValidationError("unsupported file type, only .pdf, .md, .markdown, .txt, .html, .htm are accepted")
	case errors.Is(err, document.ErrEmptyDocument):
		appErr = middleware.NewBusinessError("document has no text content")
	case errors.Is(err, models.ErrDocumentNotFound):
		appErr = middleware.NewNotFoundError("document not found")
	case errors.Is(err, storage.ErrFileNotFound):
		appErr = middleware.NewNotFoundError("stored file not found")
	case errors.Is(err, taskqueue.ErrTaskNotFound):
		appErr = middleware.NewNotFoundError("task not found")
	case errors.Is(err, models.ErrInvalidStatusTransition):
		appErr = middleware.NewConflictError("document is busy", err.Error())
	case errors.Is(err, services.ErrNoStorage),
		errors.Is(err, services.ErrNoRepository):
		appErr = middleware.NewUnavailableError(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		appErr = middleware.NewUnavailableError("request canceled")
	default:
		appErr = middleware.NewInternalError(fallback)
	}
	return appErr.WithCause(err)
}

// fail 记录错误交给错误中间件输出
func fail(c *gin.Context, err error, fallback string) {
	middleware.HandleError(c, toAppError(err, fallback))
}

// bindFailed 参数绑定失败
func bindFailed(c *gin.Context, err error) {
	middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", model.ValidationMessages(err)...).WithCause(err))
}
