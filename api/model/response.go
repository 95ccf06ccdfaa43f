package model

import (
	"encoding/json"
	"time"

	"github.com/fyerfyer/ko-doc-search/internal/index"
	"github.com/fyerfyer/ko-doc-search/internal/models"
	"github.com/fyerfyer/ko-doc-search/pkg/taskqueue"
	"gorm.io/datatypes"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// DocumentUploadResponse 文档上传响应
type DocumentUploadResponse struct {
	DocumentID string `json:"document_id"`       // 文档ID
	FileName   string `json:"filename"`          // 文件名
	Status     string `json:"status"`            // 文档状态
	TaskID     string `json:"task_id,omitempty"` // 异步索引任务ID
}

// DocumentInfo 文档信息
type DocumentInfo struct {
	DocumentID  string     `json:"document_id"`
	FileName    string     `json:"filename"`
	FileType    string     `json:"file_type"`
	FileSize    int64      `json:"file_size"`
	Status      string     `json:"status"`
	PageCount   int        `json:"page_count"`
	ChunkCount  int        `json:"chunk_count"`
	Keywords    []string   `json:"keywords"`
	Error       string     `json:"error,omitempty"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewDocumentInfo 从数据模型转换
func NewDocumentInfo(doc *models.Document) DocumentInfo {
	return DocumentInfo{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		FileType:    doc.FileType,
		FileSize:    doc.FileSize,
		Status:      string(doc.Status),
		PageCount:   doc.PageCount,
		ChunkCount:  doc.ChunkCount,
		Keywords:    decodeKeywords(doc.Keywords),
		Error:       doc.Error,
		UploadedAt:  doc.UploadedAt,
		ProcessedAt: doc.ProcessedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

// DocumentStatusResponse 文档状态查询响应
type DocumentStatusResponse struct {
	DocumentInfo
	Tasks []*taskqueue.TaskInfo `json:"tasks,omitempty"` // 相关的索引任务
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Total     int64          `json:"total"`     // 总数量
	Page      int            `json:"page"`      // 当前页码
	PageSize  int            `json:"page_size"` // 每页大小
	Documents []DocumentInfo `json:"documents"` // 文档列表
}

// DocumentDeleteResponse 文档删除响应
type DocumentDeleteResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"document_id"`
}

// ReindexResponse 重新索引响应
type ReindexResponse struct {
	DocumentID string `json:"document_id"`
	TaskID     string `json:"task_id,omitempty"`
}

// ChunkInfo 文本块信息
type ChunkInfo struct {
	ChunkID    string   `json:"chunk_id"`
	PageNumber int      `json:"page_number"`
	ChunkIndex int      `json:"chunk_index"`
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords"`
}

// NewChunkInfo 从数据模型转换
func NewChunkInfo(chunk *models.DocumentChunk) ChunkInfo {
	return ChunkInfo{
		ChunkID:    chunk.ChunkID,
		PageNumber: chunk.PageNumber,
		ChunkIndex: chunk.ChunkIndex,
		Content:    chunk.Content,
		Keywords:   decodeKeywords(chunk.Keywords),
	}
}

// ChunkListResponse 文档分块列表
type ChunkListResponse struct {
	DocumentID string      `json:"document_id"`
	Total      int         `json:"total"`
	Chunks     []ChunkInfo `json:"chunks"`
}

// SearchResult 一条检索结果
type SearchResult struct {
	Content    string  `json:"content"`
	FileName   string  `json:"filename"`
	DocumentID string  `json:"document_id"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// SearchResponse 检索响应
type SearchResponse struct {
	Query   string         `json:"query"`
	Total   int            `json:"total"`
	Results []SearchResult `json:"results"`
}

// NewSearchResponse 把索引命中转换为响应
func NewSearchResponse(query string, hits []index.Hit) SearchResponse {
	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{
			Content:    h.Content,
			FileName:   h.FileName,
			DocumentID: h.DocumentID,
			PageNumber: h.PageNumber,
			ChunkIndex: h.ChunkIndex,
			Score:      h.Score,
		}
	}
	return SearchResponse{Query: query, Total: len(results), Results: results}
}

// IndexStatsResponse 索引统计
type IndexStatsResponse struct {
	IndexedChunks uint64 `json:"indexed_chunks"` // 索引中的文本块数
	Documents     int64  `json:"documents"`      // 已登记的文档数
}

// NormalizeKeywordsResponse 关键词变体响应
type NormalizeKeywordsResponse struct {
	Keywords   []string `json:"keywords"`
	Variations []string `json:"variations"`
}

// CompoundResponse 复合词拆分响应
type CompoundResponse struct {
	Word       string   `json:"word"`
	Parts      []string `json:"parts"`
	IsCompound bool     `json:"is_compound"`
}

func decodeKeywords(raw datatypes.JSON) []string {
	keywords := []string{}
	if len(raw) == 0 {
		return keywords
	}
	if err := json.Unmarshal(raw, &keywords); err != nil || keywords == nil {
		return []string{}
	}
	return keywords
}
