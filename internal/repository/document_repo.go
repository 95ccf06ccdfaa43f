package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/ko-doc-search/internal/database"
	"github.com/fyerfyer/ko-doc-search/internal/models"
	"gorm.io/gorm"
)

// docRepository 文档仓储实现
type docRepository struct {
	db *gorm.DB // 数据库连接
}

// NewDocumentRepository 使用全局数据库连接创建文档仓储实例
func NewDocumentRepository() DocumentRepository {
	return &docRepository{db: database.MustDB()}
}

// NewDocumentRepositoryWithDB 使用指定的数据库连接创建文档仓储实例
func NewDocumentRepositoryWithDB(db *gorm.DB) DocumentRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &docRepository{db: db}
}

// WithContext 创建带有上下文的仓储
func WithContext(ctx context.Context, repo DocumentRepository) DocumentRepository {
	r, ok := repo.(*docRepository)
	if !ok {
		return repo
	}
	return &docRepository{db: r.db.WithContext(ctx)}
}

// Create 创建文档记录
func (r *docRepository) Create(doc *models.Document) error {
	if doc.ID == "" {
		return errors.New("document ID cannot be empty")
	}
	if doc.Status == "" {
		doc.Status = models.DocStatusUploaded
	}
	if !doc.Status.Valid() {
		return models.ErrInvalidDocumentStatus
	}

	return r.db.Create(doc).Error
}

// Update 更新文档记录
func (r *docRepository) Update(doc *models.Document) error {
	if doc.ID == "" {
		return errors.New("document ID cannot be empty")
	}

	return r.db.Save(doc).Error
}

// GetByID 根据ID获取文档
func (r *docRepository) GetByID(id string) (*models.Document, error) {
	var doc models.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
		}
		return nil, err
	}
	return &doc, nil
}

// GetByFileName 根据文件名获取最近上传的文档
func (r *docRepository) GetByFileName(fileName string) (*models.Document, error) {
	var doc models.Document
	err := r.db.Where("file_name = ?", fileName).
		Order("uploaded_at DESC").
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrDocumentNotFound, fileName)
		}
		return nil, err
	}
	return &doc, nil
}

// List 列出文档列表，支持分页和筛选
func (r *docRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error) {
	var docs []*models.Document
	var total int64

	query := r.db.Model(&models.Document{})

	if filters != nil {
		// 状态过滤
		switch s := filters["status"].(type) {
		case models.DocumentStatus:
			if s != "" {
				query = query.Where("status = ?", string(s))
			}
		case string:
			if s != "" {
				query = query.Where("status = ?", s)
			}
		}

		// 文件名模糊匹配
		if fileName, ok := filters["file_name"].(string); ok && fileName != "" {
			query = query.Where("file_name LIKE ?", "%"+fileName+"%")
		}

		// 文件类型
		if fileType, ok := filters["file_type"].(string); ok && fileType != "" {
			query = query.Where("file_type = ?", fileType)
		}

		// 内容指纹
		if fp, ok := filters["fingerprint"].(string); ok && fp != "" {
			query = query.Where("fingerprint = ?", fp)
		}

		// 时间范围过滤
		if startTime, ok := filters["start_time"].(time.Time); ok && !startTime.IsZero() {
			query = query.Where("uploaded_at >= ?", startTime)
		}
		if endTime, ok := filters["end_time"].(time.Time); ok && !endTime.IsZero() {
			query = query.Where("uploaded_at <= ?", endTime)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("uploaded_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// Delete 删除文档记录和分块
func (r *docRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.DocumentChunk{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
		}
		return nil
	})
}

// UpdateStatus 更新文档状态
func (r *docRepository) UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error {
	if !status.Valid() {
		return models.ErrInvalidDocumentStatus
	}

	updates := map[string]interface{}{
		"status":     status,
		"error":      errorMsg,
		"updated_at": time.Now(),
	}

	// 已完成或失败时记录处理完成时间
	if status == models.DocStatusCompleted || status == models.DocStatusFailed {
		now := time.Now()
		updates["processed_at"] = &now
	}

	res := r.db.Model(&models.Document{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
	}
	return nil
}

// SaveChunks 在一个事务中替换文档的全部分块
func (r *docRepository) SaveChunks(docID string, chunks []*models.DocumentChunk) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).Delete(&models.DocumentChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}

		for _, c := range chunks {
			c.DocumentID = docID
		}
		return tx.CreateInBatches(chunks, 100).Error
	})
}

// GetChunks 获取文档的所有分块
func (r *docRepository) GetChunks(docID string) ([]*models.DocumentChunk, error) {
	var chunks []*models.DocumentChunk
	err := r.db.Where("document_id = ?", docID).
		Order("page_number ASC").
		Order("chunk_index ASC").
		Find(&chunks).Error
	return chunks, err
}

// CountChunks 统计文档的分块数量
func (r *docRepository) CountChunks(docID string) (int, error) {
	var count int64
	err := r.db.Model(&models.DocumentChunk{}).
		Where("document_id = ?", docID).
		Count(&count).Error
	return int(count), err
}

// DeleteChunks 删除文档的所有分块
func (r *docRepository) DeleteChunks(docID string) error {
	return r.db.Where("document_id = ?", docID).
		Delete(&models.DocumentChunk{}).Error
}
