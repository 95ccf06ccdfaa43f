package database

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fyerfyer/ko-doc-search/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	original := DB
	defer func() { DB = original }()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := DefaultConfig()
	cfg.DSN = fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())

	require.NoError(t, Setup(cfg, logger))
	defer Close()

	db := MustDB()
	assert.True(t, db.Migrator().HasTable(&models.Document{}))
	assert.True(t, db.Migrator().HasTable(&models.DocumentChunk{}))
}

func TestSetupUnsupportedType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Type = "oracle"
	assert.Error(t, Setup(cfg, logrus.New()))
}

func TestMustDBPanics(t *testing.T) {
	original := DB
	defer func() { DB = original }()

	DB = nil
	assert.Panics(t, func() { MustDB() })
}

func TestOpen(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	t.Run("creates parent directory", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DSN = filepath.Join(t.TempDir(), "nested", "dir", "kosearch.db")

		db, err := Open(cfg, logger)
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		defer sqlDB.Close()

		_, err = os.Stat(filepath.Dir(cfg.DSN))
		assert.NoError(t, err)
		assert.True(t, db.Migrator().HasTable(&models.DocumentChunk{}))
	})

	t.Run("private memory database keeps one connection", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DSN = ":memory:"

		db, err := Open(cfg, logger)
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		defer sqlDB.Close()

		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
		// 迁移后的表在后续查询中可见
		require.NoError(t, db.Create(&models.Document{ID: "f1", FileName: "a.txt", FileType: "txt", FilePath: "f1", Status: models.DocStatusUploaded}).Error)
		var count int64
		require.NoError(t, db.Model(&models.Document{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("busy timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DSN = ":memory:"
		cfg.BusyTimeout = 1500 * time.Millisecond

		db, err := Open(cfg, logger)
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		defer sqlDB.Close()

		var timeout int
		require.NoError(t, db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
		assert.Equal(t, 1500, timeout)
	})
}
