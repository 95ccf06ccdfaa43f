package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fyerfyer/ko-doc-search/internal/cache"
	"github.com/fyerfyer/ko-doc-search/internal/document"
	"github.com/fyerfyer/ko-doc-search/internal/index"
	"github.com/fyerfyer/ko-doc-search/internal/models"
	"github.com/fyerfyer/ko-doc-search/internal/nlp"
	"github.com/fyerfyer/ko-doc-search/internal/repository"
	"github.com/fyerfyer/ko-doc-search/pkg/storage"
	"github.com/fyerfyer/ko-doc-search/pkg/taskqueue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// 常用错误定义
var (
	ErrEmptyQuery   = errors.New("search query is empty")
	ErrNoStorage    = errors.New("file storage is not configured")
	ErrNoRepository = errors.New("document repository is not configured")
)

const (
	searchCachePrefix  = "search"
	defaultSearchLimit = 10
	defaultCacheTTL    = 10 * time.Minute
	// 后台索引任务的超时时间
	backgroundIndexTimeout = 10 * time.Minute
)

// IndexResult 一次索引的结果
type IndexResult struct {
	DocumentID string   `json:"document_id"`
	FileName   string   `json:"file_name"`
	PageCount  int      `json:"page_count"`
	ChunkCount int      `json:"chunk_count"`
	Keywords   []string `json:"keywords"`
}

// SearchService 文档检索服务
// 负责把文档解析、分块、形态素分析后写入全文索引，并执行关键词检索
type SearchService struct {
	index         index.Index                   // 全文索引
	analyzer      *nlp.Analyzer                 // 韩文分析器
	chunker       *document.Chunker             // 文本分块器
	storage       storage.Storage               // 文件存储
	repo          repository.DocumentRepository // 文档元数据
	statusManager *DocumentStatusManager        // 文档状态管理器
	cache         cache.Cache                   // 检索结果缓存
	cacheTTL      time.Duration                 // 缓存过期时间
	taskQueue     taskqueue.Queue               // 异步索引队列
	searchLimit   int                           // 默认返回条数
	logger        *logrus.Logger

	wg sync.WaitGroup // 后台索引协程
}

// SearchOption 检索服务配置选项
type SearchOption func(*SearchService)

// NewSearchService 创建检索服务
func NewSearchService(idx index.Index, analyzer *nlp.Analyzer, opts ...SearchOption) *SearchService {
	if analyzer == nil {
		analyzer = nlp.NewAnalyzer()
	}

	s := &SearchService{
		index:       idx,
		analyzer:    analyzer,
		chunker:     document.NewChunker(document.DefaultChunkerConfig()),
		cacheTTL:    defaultCacheTTL,
		searchLimit: defaultSearchLimit,
		logger:      logrus.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.repo != nil && s.statusManager == nil:
		s.statusManager = NewDocumentStatusManager(s.repo, s.logger)
	case s.repo == nil && s.statusManager != nil:
		s.repo = s.statusManager.repo
	}
	return s
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) SearchOption {
	return func(s *SearchService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCache 设置检索结果缓存
func WithCache(c cache.Cache) SearchOption {
	return func(s *SearchService) {
		s.cache = c
	}
}

// WithCacheTTL 设置缓存过期时间
func WithCacheTTL(ttl time.Duration) SearchOption {
	return func(s *SearchService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithRepository 设置文档仓储
func WithRepository(repo repository.DocumentRepository) SearchOption {
	return func(s *SearchService) {
		s.repo = repo
	}
}

// WithStatusManager 设置状态管理器
func WithStatusManager(manager *DocumentStatusManager) SearchOption {
	return func(s *SearchService) {
		s.statusManager = manager
	}
}

// WithChunker 设置分块器
func WithChunker(chunker *document.Chunker) SearchOption {
	return func(s *SearchService) {
		if chunker != nil {
			s.chunker = chunker
		}
	}
}

// WithStorage 设置文件存储
func WithStorage(st storage.Storage) SearchOption {
	return func(s *SearchService) {
		s.storage = st
	}
}

// WithTaskQueue 设置任务队列，设置后上传的文档由工作者异步索引
func WithTaskQueue(queue taskqueue.Queue) SearchOption {
	return func(s *SearchService) {
		s.taskQueue = queue
	}
}

// WithSearchLimit 设置默认返回条数
func WithSearchLimit(limit int) SearchOption {
	return func(s *SearchService) {
		if limit > 0 {
			s.searchLimit = limit
		}
	}
}

// Analyzer 返回服务使用的分析器
func (s *SearchService) Analyzer() *nlp.Analyzer {
	return s.analyzer
}

// StatusManager 返回状态管理器，未配置仓储时为nil
func (s *SearchService) StatusManager() *DocumentStatusManager {
	return s.statusManager
}

// IndexDocument 索引一个文档
// 按页解析、分块、分析后替换索引中同名文件的全部条目
func (s *SearchService) IndexDocument(ctx context.Context, docID, filePath, fileName string) (*IndexResult, error) {
	if s.statusManager != nil {
		if err := s.statusManager.MarkAsProcessing(ctx, docID); err != nil {
			return nil, err
		}
	}

	result, err := s.indexPages(ctx, docID, filePath, fileName)
	if err != nil {
		s.failDocument(ctx, docID, err)
		return nil, err
	}

	if s.statusManager != nil {
		if err := s.statusManager.MarkAsCompleted(ctx, docID, result.PageCount, result.ChunkCount, result.Keywords); err != nil {
			return nil, fmt.Errorf("failed to mark document as completed: %w", err)
		}
	}

	s.invalidateSearchCache()
	return result, nil
}

func (s *SearchService) indexPages(ctx context.Context, docID, filePath, fileName string) (*IndexResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"doc_id":    docID,
		"file_name": fileName,
	})

	parser, err := document.ParserFactory(filePath)
	if err != nil {
		return nil, err
	}
	pages, err := parser.ParsePages(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	log.Infof("Processing %d pages", len(pages))

	chunks := s.chunker.ChunkPages(pages, fileName)
	log.Infof("Generated %d chunks", len(chunks))

	entries := make([]index.Entry, 0, len(chunks))
	rows := make([]*models.DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := chunkID(docID, c.PageNumber, c.ChunkIndex)
		processed := s.analyzer.AnalyzeText(c.Content)
		entries = append(entries, index.Entry{
			ID:               id,
			Content:          c.Content,
			ProcessedContent: processed,
			FileName:         fileName,
			DocumentID:       docID,
			PageNumber:       c.PageNumber,
			ChunkIndex:       c.ChunkIndex,
		})

		if s.repo != nil {
			keywords, err := json.Marshal(s.analyzer.ExtractKeywords(c.Content))
			if err != nil {
				return nil, fmt.Errorf("failed to encode chunk keywords: %w", err)
			}
			rows = append(rows, &models.DocumentChunk{
				ChunkID:          id,
				PageNumber:       c.PageNumber,
				ChunkIndex:       c.ChunkIndex,
				Content:          c.Content,
				ProcessedContent: processed,
				Keywords:         datatypes.JSON(keywords),
			})
		}
	}

	// 同名文件的旧条目与新条目在一个批次中替换，重复索引不会产生重复结果
	replaced, err := s.index.ReplaceFile(ctx, fileName, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}
	if replaced > 0 {
		log.WithField("replaced", replaced).Info("Replaced previous index entries")
	}

	if s.repo != nil {
		if err := repository.WithContext(ctx, s.repo).SaveChunks(docID, rows); err != nil {
			return nil, fmt.Errorf("failed to save chunks: %w", err)
		}
	}

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}

	return &IndexResult{
		DocumentID: docID,
		FileName:   fileName,
		PageCount:  len(pages),
		ChunkCount: len(entries),
		Keywords:   s.analyzer.ExtractKeywords(strings.Join(texts, "\n")),
	}, nil
}

// IndexFile 索引本地文件
// 已有同名文档时沿用其ID，配置了存储时同时保存文件副本并释放被替换的旧副本
func (s *SearchService) IndexFile(ctx context.Context, filePath string) (*IndexResult, error) {
	fileName := filepath.Base(filePath)
	docID := uuid.New().String()

	if s.statusManager != nil {
		existing, err := repository.WithContext(ctx, s.repo).GetByFileName(fileName)
		switch {
		case err == nil:
			docID = existing.ID
		case !errors.Is(err, models.ErrDocumentNotFound):
			return nil, err
		}

		doc, err := s.describeFile(ctx, docID, filePath, fileName)
		if err != nil {
			return nil, err
		}
		if err := s.statusManager.MarkAsUploaded(ctx, doc); err != nil {
			s.releaseFile(ctx, doc.FilePath, doc.Fingerprint)
			return nil, err
		}

		// 内容变化后旧的存储副本不再被本文档引用
		if existing != nil && existing.Fingerprint != doc.Fingerprint {
			s.releaseFile(ctx, existing.FilePath, existing.Fingerprint)
		}
	}

	return s.IndexDocument(ctx, docID, filePath, fileName)
}

// describeFile 生成本地文件的文档记录
func (s *SearchService) describeFile(ctx context.Context, docID, filePath, fileName string) (*models.Document, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	doc := &models.Document{
		ID:       docID,
		FileName: fileName,
		FilePath: filePath,
		FileSize: stat.Size(),
	}
	if s.storage == nil {
		return doc, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := s.storage.Save(ctx, f, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	doc.FilePath = info.ID
	doc.Fingerprint = info.Fingerprint
	return doc, nil
}

// Upload 保存上传的文件并安排索引
// 同名文档被替换为新内容，返回异步任务ID（未启用队列时为空）
func (s *SearchService) Upload(ctx context.Context, r io.Reader, fileName string) (*models.Document, string, error) {
	if s.storage == nil {
		return nil, "", ErrNoStorage
	}
	if s.statusManager == nil {
		return nil, "", ErrNoRepository
	}
	if !document.IsSupported(fileName) {
		return nil, "", fmt.Errorf("%w: %s", document.ErrUnsupportedType, filepath.Ext(fileName))
	}

	info, err := s.storage.Save(ctx, r, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store file: %w", err)
	}

	docID := uuid.New().String()
	existing, err := repository.WithContext(ctx, s.repo).GetByFileName(fileName)
	switch {
	case err == nil:
		docID = existing.ID
	case !errors.Is(err, models.ErrDocumentNotFound):
		return nil, "", err
	}

	doc := &models.Document{
		ID:          docID,
		FileName:    fileName,
		FilePath:    info.ID,
		FileSize:    info.Size,
		Fingerprint: info.Fingerprint,
	}
	if err := s.statusManager.MarkAsUploaded(ctx, doc); err != nil {
		s.releaseFile(ctx, info.ID, info.Fingerprint)
		return nil, "", err
	}

	if existing != nil && existing.Fingerprint != info.Fingerprint {
		s.releaseFile(ctx, existing.FilePath, existing.Fingerprint)
	}

	taskID, err := s.ScheduleIndex(ctx, doc.ID, info.ID, fileName)
	if err != nil {
		s.failDocument(ctx, doc.ID, err)
		return nil, "", err
	}
	return doc, taskID, nil
}

// ScheduleIndex 安排索引存储中的文件
// 配置了任务队列时入队，否则在后台协程中执行
func (s *SearchService) ScheduleIndex(ctx context.Context, docID, fileID, fileName string) (string, error) {
	if s.taskQueue != nil {
		return s.taskQueue.Enqueue(ctx, taskqueue.TaskIndexDocument, docID, &taskqueue.IndexDocumentPayload{
			DocumentID: docID,
			FileID:     fileID,
			FileName:   fileName,
		})
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundIndexTimeout)
		defer cancel()

		if _, err := s.IndexStored(ctx, docID, fileID, fileName); err != nil {
			s.logger.WithError(err).WithField("doc_id", docID).Error("Background indexing failed")
		}
	}()
	return "", nil
}

// IndexStored 从存储取出文件到临时目录后索引
func (s *SearchService) IndexStored(ctx context.Context, docID, fileID, fileName string) (*IndexResult, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}

	tmpPath, err := s.fetchFile(ctx, fileID, fileName)
	if err != nil {
		s.failDocument(ctx, docID, err)
		return nil, err
	}
	defer os.Remove(tmpPath)

	return s.IndexDocument(ctx, docID, tmpPath, fileName)
}

// fetchFile 把存储中的文件复制到带原扩展名的临时文件
func (s *SearchService) fetchFile(ctx context.Context, fileID, fileName string) (string, error) {
	rc, err := s.storage.Get(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("failed to get file: %w", err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "kosearch-*"+strings.ToLower(filepath.Ext(fileName)))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// Reindex 重新索引已上传的文档
func (s *SearchService) Reindex(ctx context.Context, docID string) (string, error) {
	if s.statusManager == nil {
		return "", ErrNoRepository
	}

	doc, err := s.statusManager.GetDocument(ctx, docID)
	if err != nil {
		return "", err
	}
	if err := s.statusManager.ValidateStateTransition(doc.Status, models.DocStatusProcessing); err != nil {
		return "", fmt.Errorf("document %s is %s: %w", docID, doc.Status, err)
	}

	return s.ScheduleIndex(ctx, doc.ID, doc.FilePath, doc.FileName)
}

// Search 检索文档
// limit不大于0时使用默认条数，fileName非空时只检索该文件
func (s *SearchService) Search(ctx context.Context, query string, limit int, fileName string) ([]index.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = s.searchLimit
	}

	log := s.logger.WithFields(logrus.Fields{
		"query": query,
		"limit": limit,
	})

	key := cache.GenerateCacheKey(searchCachePrefix, query, strconv.Itoa(limit), fileName)
	if hits, ok := s.cachedHits(key); ok {
		log.Debug("Search cache hit")
		return hits, nil
	}

	q := index.Query{
		Raw:       query,
		Processed: s.analyzer.AnalyzeText(query),
		Keywords:  s.analyzer.ExtractKeywords(query),
		Limit:     limit,
		FileName:  fileName,
	}
	log.WithFields(logrus.Fields{
		"processed": q.Processed,
		"keywords":  q.Keywords,
	}).Debug("Search query analyzed")

	hits, err := s.index.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if hits == nil {
		hits = []index.Hit{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(hits); err == nil {
			if err := s.cache.Set(key, string(data), s.cacheTTL); err != nil {
				log.WithError(err).Warn("Failed to cache search results")
			}
		}
	}

	log.WithField("hits", len(hits)).Info("Search completed")
	return hits, nil
}

func (s *SearchService) cachedHits(key string) ([]index.Hit, bool) {
	if s.cache == nil {
		return nil, false
	}

	val, found, err := s.cache.Get(key)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read search cache")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var hits []index.Hit
	if err := json.Unmarshal([]byte(val), &hits); err != nil {
		return nil, false
	}
	return hits, true
}

// DeleteDocument 删除文档的索引条目、记录、任务和不再被引用的文件
func (s *SearchService) DeleteDocument(ctx context.Context, docID string) error {
	if s.statusManager == nil {
		return ErrNoRepository
	}

	doc, err := s.statusManager.GetDocument(ctx, docID)
	if err != nil {
		return err
	}

	deleted, err := s.index.DeleteByFile(ctx, doc.FileName)
	if err != nil {
		return fmt.Errorf("failed to delete index entries: %w", err)
	}

	if err := s.statusManager.DeleteDocument(ctx, docID); err != nil {
		return err
	}

	s.releaseFile(ctx, doc.FilePath, doc.Fingerprint)

	if s.taskQueue != nil {
		tasks, err := s.taskQueue.GetTasksByDocument(ctx, docID)
		if err != nil {
			s.logger.WithError(err).WithField("doc_id", docID).Warn("Failed to list document tasks")
		}
		for _, task := range tasks {
			if err := s.taskQueue.DeleteTask(ctx, task.ID); err != nil {
				s.logger.WithError(err).WithField("task_id", task.ID).Warn("Failed to delete task")
			}
		}
	}

	s.invalidateSearchCache()

	s.logger.WithFields(logrus.Fields{
		"doc_id":  docID,
		"entries": deleted,
	}).Info("Document deleted")
	return nil
}

// releaseFile 没有其他文档引用相同内容时删除存储中的文件
func (s *SearchService) releaseFile(ctx context.Context, fileID, fingerprint string) {
	if s.storage == nil || fingerprint == "" {
		return
	}

	_, total, err := repository.WithContext(ctx, s.repo).List(0, 1, map[string]interface{}{"fingerprint": fingerprint})
	if err != nil || total > 0 {
		return
	}

	if err := s.storage.Delete(ctx, fileID); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		s.logger.WithError(err).WithField("file_id", fileID).Warn("Failed to delete stored file")
	}
}

// GetDocument 获取文档记录
func (s *SearchService) GetDocument(ctx context.Context, docID string) (*models.Document, error) {
	if s.statusManager == nil {
		return nil, ErrNoRepository
	}
	return s.statusManager.GetDocument(ctx, docID)
}

// ListDocuments 分页列出文档
func (s *SearchService) ListDocuments(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error) {
	if s.statusManager == nil {
		return nil, 0, ErrNoRepository
	}
	return s.statusManager.ListDocuments(ctx, offset, limit, filters)
}

// GetChunks 获取文档的全部分块
func (s *SearchService) GetChunks(ctx context.Context, docID string) ([]*models.DocumentChunk, error) {
	if s.statusManager == nil {
		return nil, ErrNoRepository
	}
	if _, err := s.statusManager.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	return repository.WithContext(ctx, s.repo).GetChunks(docID)
}

// GetDocumentTasks 获取文档的索引任务
func (s *SearchService) GetDocumentTasks(ctx context.Context, docID string) ([]*taskqueue.Task, error) {
	if s.taskQueue == nil {
		return []*taskqueue.Task{}, nil
	}
	return s.taskQueue.GetTasksByDocument(ctx, docID)
}

// DocumentCount 返回索引中的文本块数量
func (s *SearchService) DocumentCount(ctx context.Context) (uint64, error) {
	return s.index.Count(ctx)
}

// Wait 等待后台索引协程结束
func (s *SearchService) Wait() {
	s.wg.Wait()
}

// Close 等待后台索引结束并关闭索引
func (s *SearchService) Close() error {
	s.wg.Wait()
	return s.index.Close()
}

// invalidateSearchCache 索引变化后清除检索缓存
func (s *SearchService) invalidateSearchCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(searchCachePrefix + ":"); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate search cache")
	}
}

// failDocument 记录失败状态，使用脱离取消的上下文保证写入
func (s *SearchService) failDocument(ctx context.Context, docID string, cause error) {
	if s.statusManager == nil {
		return
	}
	if err := s.statusManager.MarkAsFailed(context.WithoutCancel(ctx), docID, cause.Error()); err != nil {
		s.logger.WithError(err).WithField("doc_id", docID).Error("Failed to mark document as failed")
	}
}

// chunkID 生成索引条目ID
func chunkID(docID string, page, chunkIndex int) string {
	return fmt.Sprintf("%s_%d_%d", docID, page, chunkIndex)
}
