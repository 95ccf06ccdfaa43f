package repository

import "github.com/fyerfyer/ko-doc-search/internal/models"

// DocumentRepository 文档仓储接口
// 负责文档元数据和分块记录的存储和检索
type DocumentRepository interface {
	// Create 创建文档记录
	Create(doc *models.Document) error

	// Update 更新文档记录
	Update(doc *models.Document) error

	// GetByID 根据ID获取文档
	GetByID(id string) (*models.Document, error)

	// GetByFileName 根据文件名获取最近上传的文档
	GetByFileName(fileName string) (*models.Document, error)

	// List 列出文档列表，支持分页和筛选
	List(offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error)

	// Delete 删除文档及其分块
	Delete(id string) error

	// UpdateStatus 更新文档状态
	UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error

	// SaveChunks 替换文档的全部分块
	SaveChunks(docID string, chunks []*models.DocumentChunk) error

	// GetChunks 获取文档的所有分块，按页码和序号排序
	GetChunks(docID string) ([]*models.DocumentChunk, error)

	// CountChunks 统计文档的分块数量
	CountChunks(docID string) (int, error)

	// DeleteChunks 删除文档的所有分块
	DeleteChunks(docID string) error
}
