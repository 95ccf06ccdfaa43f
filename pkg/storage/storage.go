package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrFileNotFound 文件不存在
var ErrFileNotFound = errors.New("file not found")

// FileInfo 文件元数据结构
type FileInfo struct {
	ID          string // 文件唯一标识符，即内容的sha256
	Name        string // 原始文件名
	Size        int64  // 文件大小(字节)
	MimeType    string // 文件MIME类型
	Path        string // 内部存储路径(实现相关)
	Fingerprint string // 内容sha256
}

// Storage 文件存储接口
// 相同内容的文件得到相同的ID，重复上传不会产生新文件
type Storage interface {
	// Save 保存文件并返回文件信息
	Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error)

	// Get 获取文件内容
	Get(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete 删除文件
	Delete(ctx context.Context, id string) error

	// List 列出所有文件
	List(ctx context.Context) ([]FileInfo, error)

	// Exists 检查文件是否存在
	Exists(ctx context.Context, id string) (bool, error)
}

// Config 存储配置
type Config struct {
	Type  string // "local" 或 "minio"
	Local LocalConfig
	Minio MinioConfig
}

// NewStorage 根据配置创建存储实例
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg.Local)
	case "minio":
		return NewMinioStorage(cfg.Minio)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// getMimeType 简单根据文件扩展名判断MIME类型
func getMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

// idFromName 从存储文件名中取出ID
func idFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
