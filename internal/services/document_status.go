package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fyerfyer/ko-doc-search/internal/models"
	"github.com/fyerfyer/ko-doc-search/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// validTransitions 允许的状态转换
// 已完成和失败的文档可以重新进入处理中以便重建索引
var validTransitions = map[models.DocumentStatus][]models.DocumentStatus{
	models.DocStatusUploaded: {
		models.DocStatusUploaded,
		models.DocStatusProcessing,
		models.DocStatusFailed,
	},
	models.DocStatusProcessing: {
		models.DocStatusCompleted,
		models.DocStatusFailed,
	},
	models.DocStatusCompleted: {models.DocStatusProcessing, models.DocStatusUploaded},
	models.DocStatusFailed:    {models.DocStatusProcessing, models.DocStatusUploaded},
}

// DocumentStatusManager 文档状态管理器
// 负责管理文档索引的生命周期状态
type DocumentStatusManager struct {
	repo   repository.DocumentRepository // 文档仓储接口
	logger *logrus.Logger                // 日志记录器
	mu     sync.Mutex                    // 保证状态转换的原子性
}

// NewDocumentStatusManager 创建文档状态管理器
func NewDocumentStatusManager(repo repository.DocumentRepository, logger *logrus.Logger) *DocumentStatusManager {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	return &DocumentStatusManager{
		repo:   repo,
		logger: logger,
	}
}

// MarkAsUploaded 记录一次上传
// 文档不存在时创建，已存在时更新文件信息并重置为已上传
func (m *DocumentStatusManager) MarkAsUploaded(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo := repository.WithContext(ctx, m.repo)

	m.logger.WithFields(logrus.Fields{
		"doc_id":   doc.ID,
		"filename": doc.FileName,
	}).Info("Marking document as uploaded")

	if doc.FileType == "" {
		doc.FileType = getFileType(doc.FileName)
	}

	existing, err := repo.GetByID(doc.ID)
	if err != nil {
		if !errors.Is(err, models.ErrDocumentNotFound) {
			return fmt.Errorf("failed to get document: %w", err)
		}
		doc.Status = models.DocStatusUploaded
		return repo.Create(doc)
	}

	if err := m.ValidateStateTransition(existing.Status, models.DocStatusUploaded); err != nil {
		return fmt.Errorf("document %s: %w", doc.ID, err)
	}

	existing.FileType = doc.FileType
	existing.FilePath = doc.FilePath
	existing.FileSize = doc.FileSize
	existing.Fingerprint = doc.Fingerprint
	existing.Status = models.DocStatusUploaded
	existing.Error = ""
	existing.UploadedAt = time.Now()
	if err := repo.Update(existing); err != nil {
		return err
	}
	*doc = *existing
	return nil
}

// MarkAsProcessing 将文档标记为处理中状态
func (m *DocumentStatusManager) MarkAsProcessing(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo := repository.WithContext(ctx, m.repo)

	doc, err := repo.GetByID(docID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if err := m.ValidateStateTransition(doc.Status, models.DocStatusProcessing); err != nil {
		return fmt.Errorf("document %s is %s: %w", docID, doc.Status, err)
	}

	m.logger.WithField("doc_id", docID).Info("Marking document as processing")
	return repo.UpdateStatus(docID, models.DocStatusProcessing, "")
}

// MarkAsCompleted 将文档标记为完成，并记录页数、分块数和文档关键词
func (m *DocumentStatusManager) MarkAsCompleted(ctx context.Context, docID string, pageCount, chunkCount int, keywords []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo := repository.WithContext(ctx, m.repo)

	doc, err := repo.GetByID(docID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if err := m.ValidateStateTransition(doc.Status, models.DocStatusCompleted); err != nil {
		return fmt.Errorf("document %s is %s: %w", docID, doc.Status, err)
	}

	if keywords == nil {
		keywords = []string{}
	}
	raw, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"doc_id":      docID,
		"page_count":  pageCount,
		"chunk_count": chunkCount,
	}).Info("Marking document as completed")

	now := time.Now()
	doc.Status = models.DocStatusCompleted
	doc.PageCount = pageCount
	doc.ChunkCount = chunkCount
	doc.Keywords = datatypes.JSON(raw)
	doc.Error = ""
	doc.ProcessedAt = &now
	return repo.Update(doc)
}

// MarkAsFailed 将文档标记为处理失败状态
func (m *DocumentStatusManager) MarkAsFailed(ctx context.Context, docID string, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"doc_id": docID,
		"error":  errorMsg,
	}).Error("Marking document as failed")

	return repository.WithContext(ctx, m.repo).UpdateStatus(docID, models.DocStatusFailed, errorMsg)
}

// GetStatus 获取文档当前状态
func (m *DocumentStatusManager) GetStatus(ctx context.Context, docID string) (models.DocumentStatus, error) {
	doc, err := m.GetDocument(ctx, docID)
	if err != nil {
		return "", fmt.Errorf("failed to get document status: %w", err)
	}
	return doc.Status, nil
}

// GetDocument 获取完整的文档对象
func (m *DocumentStatusManager) GetDocument(ctx context.Context, docID string) (*models.Document, error) {
	return repository.WithContext(ctx, m.repo).GetByID(docID)
}

// ListDocuments 获取文档列表
func (m *DocumentStatusManager) ListDocuments(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error) {
	return repository.WithContext(ctx, m.repo).List(offset, limit, filters)
}

// DeleteDocument 删除文档记录及其分块
func (m *DocumentStatusManager) DeleteDocument(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithField("doc_id", docID).Info("Deleting document record")
	return repository.WithContext(ctx, m.repo).Delete(docID)
}

// ValidateStateTransition 验证状态转换的有效性
func (m *DocumentStatusManager) ValidateStateTransition(from, to models.DocumentStatus) error {
	for _, validTo := range validTransitions[from] {
		if validTo == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidStatusTransition, from, to)
}

// getFileType 根据文件名获取文件类型
func getFileType(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}
