package model

import (
	"mime/multipart"
)

// 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// Offset 当前页的起始偏移
func (p *PaginationRequest) Offset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// DocumentUploadRequest 文档上传请求
type DocumentUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 文件对象
}

// DocumentIDRequest 路径中带文档ID的请求
type DocumentIDRequest struct {
	ID string `uri:"id" binding:"required,notblank"` // 文档ID
}

// DocumentListRequest 文档列表请求
type DocumentListRequest struct {
	PaginationRequest
	Status   string `form:"status" json:"status" binding:"omitempty,oneof=uploaded processing completed failed"` // 文档状态
	FileName string `form:"file_name" json:"file_name" binding:"omitempty"`                                      // 文件名模糊匹配
}

// SearchRequest 检索请求
type SearchRequest struct {
	Query string `form:"q" binding:"required,notblank"`           // 检索词
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"` // 返回条数
	File  string `form:"file" binding:"omitempty"`                // 只检索指定文件
}

// AnalyzeRequest 文本分析请求
type AnalyzeRequest struct {
	Text string `json:"text" binding:"required,notblank"`
}

// NormalizeKeywordsRequest 关键词变体请求
type NormalizeKeywordsRequest struct {
	Keywords []string `json:"keywords" binding:"required,min=1"`
}

// CompoundRequest 复合词拆分请求
type CompoundRequest struct {
	Word string `uri:"word" binding:"required,notblank"`
}
