package services

import (
	"context"
	"fmt"

	"github.com/fyerfyer/ko-doc-search/pkg/taskqueue"
	"github.com/sirupsen/logrus"
)

// IndexTaskHandler 处理index_document任务
type IndexTaskHandler struct {
	search *SearchService
	logger *logrus.Logger
}

// NewIndexTaskHandler 创建文档索引任务处理器
func NewIndexTaskHandler(search *SearchService, logger *logrus.Logger) *IndexTaskHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &IndexTaskHandler{search: search, logger: logger}
}

// ProcessTask 从存储中取出文件并索引
func (h *IndexTaskHandler) ProcessTask(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload taskqueue.IndexDocumentPayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", taskqueue.ErrInvalidPayload, err)
	}
	if payload.DocumentID == "" {
		payload.DocumentID = task.DocumentID
	}
	if payload.DocumentID == "" || payload.FileID == "" {
		return nil, fmt.Errorf("%w: document_id and file_id are required", taskqueue.ErrInvalidPayload)
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"doc_id":    payload.DocumentID,
		"file_name": payload.FileName,
	}).Info("Indexing document from task")

	result, err := h.search.IndexStored(ctx, payload.DocumentID, payload.FileID, payload.FileName)
	if err != nil {
		return nil, err
	}

	return &taskqueue.IndexDocumentResult{
		DocumentID: result.DocumentID,
		PageCount:  result.PageCount,
		ChunkCount: result.ChunkCount,
	}, nil
}

// GetTaskTypes 返回支持的任务类型
func (h *IndexTaskHandler) GetTaskTypes() []taskqueue.TaskType {
	return []taskqueue.TaskType{taskqueue.TaskIndexDocument}
}
