package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fyerfyer/ko-doc-search/api/middleware"
	"github.com/fyerfyer/ko-doc-search/config"
	"github.com/fyerfyer/ko-doc-search/internal/cache"
	"github.com/fyerfyer/ko-doc-search/internal/database"
	"github.com/fyerfyer/ko-doc-search/internal/document"
	"github.com/fyerfyer/ko-doc-search/internal/index"
	"github.com/fyerfyer/ko-doc-search/internal/nlp"
	"github.com/fyerfyer/ko-doc-search/internal/repository"
	"github.com/fyerfyer/ko-doc-search/internal/services"
	"github.com/fyerfyer/ko-doc-search/pkg/storage"
	"github.com/fyerfyer/ko-doc-search/pkg/taskqueue"
	"github.com/sirupsen/logrus"
)

// application 组装好的运行时组件
type application struct {
	cfg      *config.Config
	logger   *logrus.Logger
	index    index.Index
	cache    cache.Cache
	storage  storage.Storage
	queue    taskqueue.Queue
	search   *services.SearchService
	analysis *services.AnalysisService
}

// newApplication 按配置初始化数据库、索引、缓存、存储和服务
// withQueue为false时即使配置启用了队列也不连接，供命令行一次性操作使用
func newApplication(cfg *config.Config, withQueue bool) (*application, error) {
	logger := middleware.GetLogger()
	app := &application{cfg: cfg, logger: logger}

	dbConfig := database.DefaultConfig()
	dbConfig.Type = cfg.Database.Type
	dbConfig.DSN = cfg.Database.DSN
	if err := database.Setup(dbConfig, logger); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	idx, err := index.NewIndex(index.Config{
		Type:           cfg.Index.Type,
		Path:           cfg.Index.Path,
		ContentBoost:   cfg.Search.ContentBoost,
		ProcessedBoost: cfg.Search.ProcessedBoost,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	app.index = idx

	if cfg.Cache.Enable {
		c, err := cache.NewCache(cache.Config{
			Type:            cfg.Cache.Type,
			RedisAddr:       cfg.Cache.Address,
			RedisPassword:   cfg.Cache.Password,
			RedisDB:         cfg.Cache.DB,
			KeyPrefix:       "kosearch:",
			DefaultTTL:      time.Duration(cfg.Cache.TTL) * time.Second,
			CleanupInterval: 10 * time.Minute,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		app.cache = c
	}

	st, err := storage.NewStorage(storage.Config{
		Type:  cfg.Storage.Type,
		Local: storage.LocalConfig{Path: cfg.Storage.Path},
		Minio: storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
		},
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.storage = st

	if withQueue && cfg.Queue.Enable {
		q, err := taskqueue.NewQueue(cfg.Queue.Type, &taskqueue.Config{
			RedisAddr:     cfg.Queue.RedisAddr,
			RedisPassword: cfg.Queue.RedisPassword,
			RedisDB:       cfg.Queue.RedisDB,
			Concurrency:   cfg.Queue.Concurrency,
			RetryLimit:    cfg.Queue.RetryLimit,
			RetryDelay:    time.Duration(cfg.Queue.RetryDelay) * time.Second,
			TaskTTL:       time.Duration(cfg.Queue.TaskTTL) * time.Hour,
			Queues:        map[string]int{"default": 1},
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		app.queue = q
		logger.WithFields(logrus.Fields{
			"redis_addr":  cfg.Queue.RedisAddr,
			"concurrency": cfg.Queue.Concurrency,
		}).Info("Task queue initialized")
	}

	analyzer := nlp.NewAnalyzer(
		nlp.WithLogger(logger),
		nlp.WithMaxKeywords(cfg.Analyzer.MaxKeywords),
	)
	chunker := document.NewChunker(document.ChunkerConfig{
		ChunkSize:    cfg.Document.ChunkSize,
		ChunkOverlap: cfg.Document.ChunkOverlap,
		Workers:      cfg.Document.ParseWorkers,
	})

	opts := []services.SearchOption{
		services.WithLogger(logger),
		services.WithRepository(repository.NewDocumentRepository()),
		services.WithChunker(chunker),
		services.WithStorage(st),
		services.WithSearchLimit(cfg.Search.Limit),
		services.WithCacheTTL(time.Duration(cfg.Cache.TTL) * time.Second),
	}
	if app.cache != nil {
		opts = append(opts, services.WithCache(app.cache))
	}
	if app.queue != nil {
		opts = append(opts, services.WithTaskQueue(app.queue))
	}

	app.search = services.NewSearchService(idx, analyzer, opts...)
	app.analysis = services.NewAnalysisService(analyzer, app.cache, time.Hour, logger)
	return app, nil
}

// Close 释放所有组件
func (a *application) Close() error {
	var errs []error
	if a.search != nil {
		errs = append(errs, a.search.Close())
	} else if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	if closer, ok := a.cache.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, database.Close())
	return errors.Join(errs...)
}
