package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/ko-doc-search/api"
	"github.com/fyerfyer/ko-doc-search/api/handler"
	"github.com/fyerfyer/ko-doc-search/internal/services"
	"github.com/fyerfyer/ko-doc-search/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gin.SetMode(cfg.Server.Mode)

		app, err := newApplication(cfg, true)
		if err != nil {
			return err
		}
		defer app.Close()

		logger := app.logger
		logger.Info("Starting Korean document search service...")

		// 启用队列时在同一进程内运行工作者
		if app.queue != nil {
			worker, err := startWorker(app)
			if err != nil {
				return err
			}
			defer worker.Stop()
		}

		router := api.SetupRouter(
			handler.NewDocumentHandler(app.search),
			handler.NewSearchHandler(app.search),
			handler.NewAnalysisHandler(app.analysis),
		)

		srv := &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Infof("Server is running on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
		case sig := <-quit:
			logger.WithField("signal", sig.String()).Info("Shutting down server...")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("Server exited")
		return nil
	},
}

// startWorker 注册索引任务处理器并启动工作者
func startWorker(app *application) (taskqueue.Worker, error) {
	rq, ok := app.queue.(*taskqueue.RedisQueue)
	if !ok {
		return nil, fmt.Errorf("unsupported queue implementation %T", app.queue)
	}

	worker := taskqueue.NewRedisWorker(rq, nil)
	indexHandler := services.NewIndexTaskHandler(app.search, app.logger)
	for _, t := range indexHandler.GetTaskTypes() {
		worker.RegisterHandler(t, indexHandler)
	}

	if err := worker.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	app.logger.WithFields(logrus.Fields{
		"concurrency": app.cfg.Queue.Concurrency,
	}).Info("Index worker started")
	return worker, nil
}
