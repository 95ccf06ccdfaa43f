package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// 任务键前缀
	taskKeyPrefix = "kosearch:task:"
	// 文档任务集合键前缀
	documentTasksKeyPrefix = "kosearch:document_tasks:"
	// asynq默认队列
	defaultQueueName = "default"
)

// RedisQueue Redis任务队列实现
// asynq负责调度，任务记录以JSON保存在Redis中
type RedisQueue struct {
	client      *asynq.Client    // 用于添加任务
	inspector   *asynq.Inspector // 用于删除未执行的任务
	redisClient *redis.Client    // 存储任务记录
	cfg         *Config
	logger      *logrus.Logger
}

// NewRedisQueue 创建Redis任务队列实例
func NewRedisQueue(cfg *Config) (Queue, error) {
	q, err := newRedisQueue(cfg, nil)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// NewRedisQueueWithLogger 使用指定日志记录器创建Redis任务队列
func NewRedisQueueWithLogger(cfg *Config, logger *logrus.Logger) (*RedisQueue, error) {
	return newRedisQueue(cfg, logger)
}

func newRedisQueue(cfg *Config, logger *logrus.Logger) (*RedisQueue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.TaskTTL <= 0 {
		cfg.TaskTTL = DefaultConfig().TaskTTL
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 测试Redis连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	opt := redisOpt(cfg)
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return &RedisQueue{
		client:      asynq.NewClient(opt),
		inspector:   asynq.NewInspector(opt),
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

func redisOpt(cfg *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// Enqueue 将任务加入队列
func (q *RedisQueue) Enqueue(ctx context.Context, taskType TaskType, documentID string, payload interface{}) (string, error) {
	taskID := uuid.New().String()

	payloadBytes, err := MarshalPayload(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now()
	task := &Task{
		ID:         taskID,
		Type:       taskType,
		DocumentID: documentID,
		Status:     StatusPending,
		Payload:    payloadBytes,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: q.cfg.RetryLimit,
	}

	// 先保存任务记录，工作者收到任务时才能查到
	if err := q.saveTask(ctx, task); err != nil {
		return "", fmt.Errorf("failed to save task to redis: %w", err)
	}

	// asynq任务的载荷只有任务ID
	asynqTask := asynq.NewTask(string(taskType), []byte(taskID))
	_, err = q.client.EnqueueContext(ctx, asynqTask,
		asynq.TaskID(taskID),
		asynq.Queue(defaultQueueName),
		asynq.MaxRetry(q.cfg.RetryLimit),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":     taskID,
		"task_type":   taskType,
		"document_id": documentID,
	}).Info("Task enqueued successfully")

	return taskID, nil
}

// GetTask 获取任务信息
func (q *RedisQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	data, err := q.redisClient.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task from redis: %w", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task data: %w", err)
	}
	return &task, nil
}

// GetTasksByDocument 获取文档相关的所有任务
func (q *RedisQueue) GetTasksByDocument(ctx context.Context, documentID string) ([]*Task, error) {
	taskIDs, err := q.redisClient.SMembers(ctx, documentTasksKeyPrefix+documentID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get document tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				// 任务记录可能已过期
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// UpdateTaskStatus 更新任务状态
func (q *RedisQueue) UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = status
	task.UpdatedAt = now
	task.Error = errMsg

	if status == StatusProcessing && task.StartedAt == nil {
		task.StartedAt = &now
	}
	if status.Done() {
		task.CompletedAt = &now
	}

	if result != nil {
		resultBytes, err := MarshalPayload(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		task.Result = resultBytes
	}

	return q.saveTask(ctx, task)
}

// DeleteTask 删除任务
func (q *RedisQueue) DeleteTask(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	pipe := q.redisClient.TxPipeline()
	if task.DocumentID != "" {
		pipe.SRem(ctx, documentTasksKeyPrefix+task.DocumentID, taskID)
	}
	pipe.Del(ctx, taskKeyPrefix+taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	// 已在处理中的任务无法从asynq中删除
	if !task.Status.Done() {
		if err := q.inspector.DeleteTask(defaultQueueName, taskID); err != nil {
			q.logger.WithError(err).WithField("task_id", taskID).Warn("Failed to delete task from asynq queue")
		}
	}
	return nil
}

// Close 关闭队列连接
func (q *RedisQueue) Close() error {
	var errs []error
	if err := q.client.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := q.inspector.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := q.redisClient.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// saveTask 将任务记录保存到Redis，并加入文档任务集合
func (q *RedisQueue) saveTask(ctx context.Context, task *Task) error {
	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.redisClient.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, taskData, q.cfg.TaskTTL)
	if task.DocumentID != "" {
		docKey := documentTasksKeyPrefix + task.DocumentID
		pipe.SAdd(ctx, docKey, task.ID)
		pipe.Expire(ctx, docKey, q.cfg.TaskTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save task data: %w", err)
	}
	return nil
}

// RedisWorker Redis工作者实现
type RedisWorker struct {
	server   *asynq.Server
	queue    *RedisQueue
	handlers map[TaskType]Handler
	logger   *logrus.Logger
}

// NewRedisWorker 创建Redis工作者
func NewRedisWorker(queue *RedisQueue, cfg *Config) *RedisWorker {
	if cfg == nil {
		cfg = queue.cfg
	}

	queues := cfg.Queues
	if len(queues) == 0 {
		queues = map[string]int{defaultQueueName: 1}
	}

	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      queues,
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return cfg.RetryDelay
		},
		Logger: queue.logger,
	})

	return &RedisWorker{
		server:   server,
		queue:    queue,
		handlers: make(map[TaskType]Handler),
		logger:   queue.logger,
	}
}

// RegisterHandler 注册任务处理器
func (w *RedisWorker) RegisterHandler(taskType TaskType, handler Handler) {
	w.handlers[taskType] = handler
}

// Start 启动工作者，不阻塞
func (w *RedisWorker) Start() error {
	mux := asynq.NewServeMux()

	for taskType, handler := range w.handlers {
		h := handler
		mux.HandleFunc(string(taskType), func(ctx context.Context, task *asynq.Task) error {
			return w.process(ctx, h, string(task.Payload()))
		})
		w.logger.WithField("task_type", taskType).Info("Registered handler for task type")
	}

	return w.server.Start(mux)
}

// Stop 停止工作者
func (w *RedisWorker) Stop() {
	w.server.Shutdown()
}

// process 执行单个任务并回写状态
func (w *RedisWorker) process(ctx context.Context, h Handler, taskID string) error {
	log := w.logger.WithField("task_id", taskID)

	task, err := w.queue.GetTask(ctx, taskID)
	if err != nil {
		log.WithError(err).Error("Failed to get task info")
		if errors.Is(err, ErrTaskNotFound) {
			// 任务记录已被删除，不再重试
			return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
		}
		return err
	}

	if err := w.queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, ""); err != nil {
		log.WithError(err).Error("Failed to update task status to processing")
	}

	start := time.Now()
	result, err := h.ProcessTask(ctx, task)
	if err != nil {
		if updateErr := w.queue.UpdateTaskStatus(ctx, taskID, StatusFailed, nil, err.Error()); updateErr != nil {
			log.WithError(updateErr).Error("Failed to update task status after failure")
		}
		log.WithError(err).Warn("Task failed")
		return err
	}

	if err := w.queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, ""); err != nil {
		log.WithError(err).Error("Failed to update task status after completion")
	}
	log.WithField("elapsed", time.Since(start).String()).Info("Task completed")
	return nil
}

// 注册Redis队列工厂函数
func init() {
	RegisterQueueFactory("redis", func(cfg *Config) (Queue, error) {
		return NewRedisQueue(cfg)
	})
}

// 队列工厂函数映射
var queueFactories = make(map[string]Factory)

// RegisterQueueFactory 注册队列工厂函数
func RegisterQueueFactory(name string, factory Factory) {
	queueFactories[name] = factory
}

// NewQueue 根据名称创建队列实例
func NewQueue(name string, cfg *Config) (Queue, error) {
	factory, exists := queueFactories[name]
	if !exists {
		return nil, fmt.Errorf("unknown queue implementation: %s", name)
	}
	return factory(cfg)
}
