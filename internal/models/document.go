package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentStatus 文档处理状态类型
type DocumentStatus string

const (
	// DocStatusUploaded 文档已上传，等待索引
	DocStatusUploaded DocumentStatus = "uploaded"
	// DocStatusProcessing 文档索引中
	DocStatusProcessing DocumentStatus = "processing"
	// DocStatusCompleted 文档索引完成
	DocStatusCompleted DocumentStatus = "completed"
	// DocStatusFailed 文档索引失败
	DocStatusFailed DocumentStatus = "failed"
)

// Valid 判断状态值是否合法
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocStatusUploaded, DocStatusProcessing, DocStatusCompleted, DocStatusFailed:
		return true
	}
	return false
}

// Document 文档数据模型
// 记录上传文件的元数据和索引结果
type Document struct {
	ID          string         `gorm:"primaryKey"`           // 文档ID，主键
	FileName    string         `gorm:"not null;index"`       // 文件名，同时作为索引中的来源名
	FileType    string         `gorm:"not null"`             // 文件类型
	FilePath    string         `gorm:"not null"`             // 存储中的文件ID或路径
	FileSize    int64          `gorm:"not null"`             // 文件大小（字节）
	Fingerprint string         `gorm:"size:64;index"`        // 内容sha256
	Status      DocumentStatus `gorm:"not null;index"`       // 处理状态
	PageCount   int            `gorm:"not null;default:0"`   // 页数
	ChunkCount  int            `gorm:"not null;default:0"`   // 分块数量
	Keywords    datatypes.JSON `gorm:"type:json"`            // 文档级关键词
	Error       string         `gorm:"type:text"`            // 错误信息
	UploadedAt  time.Time      `gorm:"not null;index"`       // 上传时间
	ProcessedAt *time.Time     `gorm:"index"`                // 处理完成时间
	UpdatedAt   time.Time      `gorm:"not null;index"`       // 更新时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (d *Document) BeforeCreate(tx *gorm.DB) (err error) {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (d *Document) BeforeUpdate(tx *gorm.DB) (err error) {
	d.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Document) TableName() string {
	return "documents"
}

// DocumentChunk 文档分块数据模型
// 与全文索引中的条目一一对应
type DocumentChunk struct {
	ID               uint           `gorm:"primaryKey;autoIncrement"` // 主键ID
	DocumentID       string         `gorm:"not null;index"`           // 所属文档ID
	ChunkID          string         `gorm:"not null;uniqueIndex"`     // 索引条目ID
	PageNumber       int            `gorm:"not null"`                 // 页码
	ChunkIndex       int            `gorm:"not null"`                 // 页内分块序号
	Content          string         `gorm:"type:text;not null"`       // 原始文本
	ProcessedContent string         `gorm:"type:text"`                // 形态素分析结果
	Keywords         datatypes.JSON `gorm:"type:json"`                // 分块关键词
	CreatedAt        time.Time      `gorm:"not null"`                 // 创建时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (c *DocumentChunk) BeforeCreate(tx *gorm.DB) (err error) {
	c.CreatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (DocumentChunk) TableName() string {
	return "document_chunks"
}
