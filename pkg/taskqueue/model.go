package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskIndexDocument 文档索引任务：解析、分块、分析并写入全文索引
	TaskIndexDocument TaskType = "index_document"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Done 任务是否已结束
func (s TaskStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task 任务基础结构
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	DocumentID  string          `json:"document_id"`  // 关联的文档ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷
	Result      json.RawMessage `json:"result"`       // 任务结果
	Error       string          `json:"error"`        // 错误信息
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// IndexDocumentPayload 文档索引任务载荷
type IndexDocumentPayload struct {
	DocumentID string `json:"document_id"` // 文档ID
	FileID     string `json:"file_id"`     // 存储中的文件ID
	FileName   string `json:"file_name"`   // 原始文件名
}

// IndexDocumentResult 文档索引任务结果
type IndexDocumentResult struct {
	DocumentID string `json:"document_id"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
}
