package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// deleteBatchSize 按文件收集条目时每页的数量
const deleteBatchSize = 500

// BleveIndex 基于bleve的全文索引
// 磁盘索引在第一次写入时创建，之前的检索返回空结果
type BleveIndex struct {
	mu     sync.RWMutex
	idx    bleve.Index
	config Config
	closed bool
}

// NewBleveIndex 打开或准备一个磁盘索引
func NewBleveIndex(config Config) (Index, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("index path is required")
	}

	b := &BleveIndex{config: config}
	idx, err := bleve.Open(config.Path)
	switch {
	case err == nil:
		b.idx = idx
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		// 延迟到第一次写入时创建
	default:
		return nil, fmt.Errorf("failed to open index at %s: %w", config.Path, err)
	}
	return b, nil
}

// NewMemoryIndex 创建纯内存索引
func NewMemoryIndex(config Config) (Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create memory index: %w", err)
	}
	return &BleveIndex{idx: idx, config: config}, nil
}

// buildMapping 定义文本块的字段映射
func buildMapping() mapping.IndexMapping {
	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = true

	processed := bleve.NewTextFieldMapping()
	processed.Analyzer = standard.Name
	processed.Store = false

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Store = true

	numeric := bleve.NewNumericFieldMapping()
	numeric.Store = true

	chunk := bleve.NewDocumentMapping()
	chunk.AddFieldMappingsAt(fieldContent, content)
	chunk.AddFieldMappingsAt(fieldProcessedContent, processed)
	chunk.AddFieldMappingsAt(fieldFileName, keyword)
	chunk.AddFieldMappingsAt(fieldDocumentID, keyword)
	chunk.AddFieldMappingsAt(fieldPageNumber, numeric)
	chunk.AddFieldMappingsAt(fieldChunkIndex, numeric)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = chunk
	m.DefaultAnalyzer = standard.Name
	return m
}

// ensureIndex 必要时创建磁盘索引，调用方需持有写锁
func (b *BleveIndex) ensureIndex() error {
	if b.idx != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.config.Path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	idx, err := bleve.New(b.config.Path, buildMapping())
	if err != nil {
		return fmt.Errorf("failed to create index at %s: %w", b.config.Path, err)
	}
	b.idx = idx
	return nil
}

// IndexChunks 批量写入文本块
func (b *BleveIndex) IndexChunks(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrIndexClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.ensureIndex(); err != nil {
		return err
	}

	batch := b.idx.NewBatch()
	for _, e := range entries {
		if e.ID == "" {
			return ErrInvalidEntry
		}
		if err := batch.Index(e.ID, entryFields(e)); err != nil {
			return fmt.Errorf("failed to add entry %s to batch: %w", e.ID, err)
		}
	}

	if err := b.idx.Batch(batch); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	return nil
}

func entryFields(e Entry) map[string]interface{} {
	return map[string]interface{}{
		fieldContent:          e.Content,
		fieldProcessedContent: e.ProcessedContent,
		fieldFileName:         e.FileName,
		fieldDocumentID:       e.DocumentID,
		fieldPageNumber:       float64(e.PageNumber),
		fieldChunkIndex:       float64(e.ChunkIndex),
	}
}

// DeleteByFile 删除指定文件的所有文本块
func (b *BleveIndex) DeleteByFile(ctx context.Context, fileName string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrIndexClosed
	}
	if b.idx == nil {
		return 0, nil
	}

	ids, err := b.fileEntryIDs(ctx, fileName)
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	batch := b.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.idx.Batch(batch); err != nil {
		return 0, fmt.Errorf("failed to delete entries of %s: %w", fileName, err)
	}
	return len(ids), nil
}

// ReplaceFile 在同一个批次中删除文件的旧条目并写入新条目
// 批次写入失败时索引保持原状，检索不会看到只删不写的中间状态
func (b *BleveIndex) ReplaceFile(ctx context.Context, fileName string, entries []Entry) (int, error) {
	for _, e := range entries {
		if e.ID == "" {
			return 0, ErrInvalidEntry
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrIndexClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := b.ensureIndex(); err != nil {
		return 0, err
	}

	old, err := b.fileEntryIDs(ctx, fileName)
	if err != nil {
		return 0, err
	}

	// 同一批次内后写入的操作覆盖先前对同一ID的删除
	batch := b.idx.NewBatch()
	for _, id := range old {
		batch.Delete(id)
	}
	for _, e := range entries {
		if err := batch.Index(e.ID, entryFields(e)); err != nil {
			return 0, fmt.Errorf("failed to add entry %s to batch: %w", e.ID, err)
		}
	}
	if batch.Size() == 0 {
		return 0, nil
	}
	if err := b.idx.Batch(batch); err != nil {
		return 0, fmt.Errorf("failed to replace entries of %s: %w", fileName, err)
	}
	return len(old), nil
}

// fileEntryIDs 分页收集指定文件的全部条目ID，调用方需持有锁
func (b *BleveIndex) fileEntryIDs(ctx context.Context, fileName string) ([]string, error) {
	q := bleve.NewTermQuery(fileName)
	q.SetField(fieldFileName)

	var ids []string
	for from := 0; ; from += deleteBatchSize {
		req := bleve.NewSearchRequestOptions(q, deleteBatchSize, from, false)
		req.SortBy([]string{"_id"})
		res, err := b.idx.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to find entries of %s: %w", fileName, err)
		}
		for _, h := range res.Hits {
			ids = append(ids, h.ID)
		}
		if len(res.Hits) < deleteBatchSize {
			return ids, nil
		}
	}
}

// Search 执行检索
func (b *BleveIndex) Search(ctx context.Context, q Query) ([]Hit, error) {
	bq, err := BuildQuery(q, b.config.ContentBoost, b.config.ProcessedBoost)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrIndexClosed
	}
	if b.idx == nil {
		return []Hit{}, nil
	}

	req := bleve.NewSearchRequestOptions(bq, q.limit(), 0, false)
	req.Fields = []string{fieldContent, fieldFileName, fieldDocumentID, fieldPageNumber, fieldChunkIndex}

	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			ID:         h.ID,
			Content:    stringField(h.Fields, fieldContent),
			FileName:   stringField(h.Fields, fieldFileName),
			DocumentID: stringField(h.Fields, fieldDocumentID),
			PageNumber: intField(h.Fields, fieldPageNumber),
			ChunkIndex: intField(h.Fields, fieldChunkIndex),
			Score:      h.Score,
		})
	}
	return hits, nil
}

// Count 返回文本块数量
func (b *BleveIndex) Count(ctx context.Context) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrIndexClosed
	}
	if b.idx == nil {
		return 0, nil
	}
	return b.idx.DocCount()
}

// Close 关闭索引
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.idx == nil {
		return nil
	}
	return b.idx.Close()
}

func stringField(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

// intField 数值字段从bleve中以float64返回
func intField(fields map[string]interface{}, name string) int {
	switch v := fields[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func init() {
	RegisterIndex("bleve", NewBleveIndex)
	RegisterIndex("memory", NewMemoryIndex)
}
