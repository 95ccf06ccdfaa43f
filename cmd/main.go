package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fyerfyer/ko-doc-search/api/middleware"
	"github.com/fyerfyer/ko-doc-search/config"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "kosearch",
	Short: "Korean document keyword search",
	Long: `kosearch indexes PDF, Markdown, HTML and text documents with Korean morphological
analysis and searches them by keyword.

Examples:
  kosearch serve --config config.yaml
  kosearch index report.pdf notes.md
  kosearch search "인공지능" --limit 5
  kosearch analyze "머신러닝과 딥러닝이 핵심이다."`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug/info/warn/error), overrides log.level")

	rootCmd.AddCommand(serveCmd, indexCmd, searchCmd, analyzeCmd, menuCmd, demoCmd)
}

// loadConfig 读取配置并设置日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := middleware.ConfigureLogger(middleware.LogOptions{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
