package index

import (
	"context"
	"errors"
	"fmt"
)

// 常用错误定义
var (
	ErrIndexClosed  = errors.New("index is closed")
	ErrInvalidQuery = errors.New("query has no searchable terms")
	ErrInvalidEntry = errors.New("index entry requires an ID")
)

// Entry 写入全文索引的一个文本块
type Entry struct {
	ID               string // 唯一标识符
	Content          string // 原始文本，存储并参与检索
	ProcessedContent string // 形态素分析后的文本，仅参与检索
	FileName         string // 来源文件名，精确匹配
	DocumentID       string // 所属文档ID，精确匹配
	PageNumber       int    // 页码
	ChunkIndex       int    // 页内分块序号
}

// Hit 检索命中的文本块
type Hit struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	FileName   string  `json:"file_name"`
	DocumentID string  `json:"document_id"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// Index 全文索引接口
type Index interface {
	// IndexChunks 批量写入文本块，ID相同的条目会被覆盖
	IndexChunks(ctx context.Context, entries []Entry) error

	// DeleteByFile 删除指定文件的所有文本块，返回删除数量
	DeleteByFile(ctx context.Context, fileName string) (int, error)

	// ReplaceFile 原子地用entries替换指定文件的全部文本块，返回被替换的旧条目数量
	ReplaceFile(ctx context.Context, fileName string, entries []Entry) (int, error)

	// Search 按查询检索，结果按得分降序
	Search(ctx context.Context, q Query) ([]Hit, error)

	// Count 返回索引中的文本块数量
	Count(ctx context.Context) (uint64, error)

	// Close 关闭索引
	Close() error
}

// Config 索引配置
type Config struct {
	Type           string  // 索引类型: "bleve", "memory"
	Path           string  // 索引目录
	ContentBoost   float64 // content字段权重
	ProcessedBoost float64 // processedContent字段权重
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Type:           "bleve",
		Path:           "./data/index",
		ContentBoost:   2.0,
		ProcessedBoost: 1.5,
	}
}

// Factory 索引工厂函数类型
type Factory func(config Config) (Index, error)

// registry 注册可用的索引实现
var registry = map[string]Factory{}

// RegisterIndex 注册索引工厂函数
func RegisterIndex(name string, factory Factory) {
	registry[name] = factory
}

// NewIndex 根据配置创建索引实例
func NewIndex(config Config) (Index, error) {
	def := DefaultConfig()
	if config.ContentBoost <= 0 {
		config.ContentBoost = def.ContentBoost
	}
	if config.ProcessedBoost <= 0 {
		config.ProcessedBoost = def.ProcessedBoost
	}

	factory, ok := registry[config.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported index type: %s", config.Type)
	}
	return factory(config)
}
