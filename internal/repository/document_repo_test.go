package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fyerfyer/ko-doc-search/internal/database"
	"github.com/fyerfyer/ko-doc-search/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	// 使用唯一的内存数据库标识符
	dbName := fmt.Sprintf("file:memdb_%d?mode=memory", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err, "Failed to open in-memory database")

	err = database.AutoMigrate(db)
	require.NoError(t, err, "Failed to run migrations")

	// 替换全局DB为测试DB
	originalDB := database.DB
	database.DB = db

	cleanup := func() {
		database.DB = originalDB
	}

	return db, cleanup
}

func newTestDocument(id, fileName string) *models.Document {
	return &models.Document{
		ID:          id,
		FileName:    fileName,
		FileType:    "txt",
		FilePath:    "files/" + id,
		FileSize:    1024,
		Fingerprint: "abc123",
		Status:      models.DocStatusUploaded,
	}
}

func TestDocumentRepository_Create(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository()

	t.Run("create and get", func(t *testing.T) {
		doc := newTestDocument("doc-1", "보고서.txt")
		doc.Keywords = datatypes.JSON(`["인공지능","머신러닝"]`)
		require.NoError(t, repo.Create(doc))

		saved, err := repo.GetByID("doc-1")
		require.NoError(t, err)
		assert.Equal(t, "보고서.txt", saved.FileName)
		assert.Equal(t, models.DocStatusUploaded, saved.Status)
		assert.False(t, saved.UploadedAt.IsZero())
		assert.JSONEq(t, `["인공지능","머신러닝"]`, string(saved.Keywords))
	})

	t.Run("default status", func(t *testing.T) {
		doc := newTestDocument("doc-2", "b.txt")
		doc.Status = ""
		require.NoError(t, repo.Create(doc))
		assert.Equal(t, models.DocStatusUploaded, doc.Status)
	})

	t.Run("empty id", func(t *testing.T) {
		assert.Error(t, repo.Create(newTestDocument("", "c.txt")))
	})

	t.Run("invalid status", func(t *testing.T) {
		doc := newTestDocument("doc-3", "c.txt")
		doc.Status = "archived"
		assert.ErrorIs(t, repo.Create(doc), models.ErrInvalidDocumentStatus)
	})
}

func TestDocumentRepository_GetNotFound(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository()

	_, err := repo.GetByID("missing")
	assert.True(t, errors.Is(err, models.ErrDocumentNotFound))

	_, err = repo.GetByFileName("missing.txt")
	assert.True(t, errors.Is(err, models.ErrDocumentNotFound))
}

func TestDocumentRepository_GetByFileName(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository()

	older := newTestDocument("doc-old", "same.txt")
	older.UploadedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(older))

	newer := newTestDocument("doc-new", "same.txt")
	require.NoError(t, repo.Create(newer))

	doc, err := repo.GetByFileName("same.txt")
	require.NoError(t, err)
	assert.Equal(t, "doc-new", doc.ID)
}

func TestDocumentRepository_Update(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository()
	doc := newTestDocument("doc-1", "a.txt")
	require.NoError(t, repo.Create(doc))

	doc.PageCount = 3
	doc.ChunkCount = 7
	require.NoError(t, repo.Update(doc))

	saved, err := repo.GetByID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, saved.PageCount)
	assert.Equal(t, 7, saved.ChunkCount)
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository()
	require.NoError(t, repo.Create(newTestDocument("doc-1", "a.txt")))

	t.Run("failed sets error and processed time", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus("doc-1", models.DocStatusFailed, "parse error"))

		doc, err := repo.GetByID("doc-1")
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusFailed, doc.Status)
		assert.Equal(t, "parse error", doc.Error)
		assert.NotNil(t, doc.ProcessedAt)
	})

	t.Run("processing clears error", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus("doc-1", models.DocStatusProcessing, ""))

		doc, err := repo.GetByID("doc-1")
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusProcessing, doc.Status)
		assert.Empty(t, doc.Error)
	})

	t.Run("unknown document", func(t *testing.T) {
		err := repo.UpdateStatus("missing", models.DocStatusCompleted, "")
		assert.ErrorIs(t, err, models.ErrDocumentNotFound)
	})

	t.Run("invalid status", func(t *testing.T) {
		err := repo.UpdateStatus("doc-1", "archived", "")
		assert.ErrorIs(t, err, models.ErrInvalidDocumentStatus)
	})
}

func TestDocumentRepository_List(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		doc := newTestDocument(fmt.Sprintf("doc-%d", i), fmt.Sprintf("report-%d.txt", i))
		doc.UploadedAt = base.Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			doc.Status = models.DocStatusCompleted
		}
		if i == 4 {
			doc.FileType = "pdf"
		}
		require.NoError(t, repo.Create(doc))
	}

	t.Run("pagination newest first", func(t *testing.T) {
		docs, total, err := repo.List(0, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, docs, 2)
		assert.Equal(t, "doc-4", docs[0].ID)
		assert.Equal(t, "doc-3", docs[1].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		docs, total, err := repo.List(0, 10, map[string]interface{}{"status": models.DocStatusCompleted})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		for _, d := range docs {
			assert.Equal(t, models.DocStatusCompleted, d.Status)
		}
	})

	t.Run("file name and type filters", func(t *testing.T) {
		docs, total, err := repo.List(0, 10, map[string]interface{}{"file_name": "report-1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "doc-1", docs[0].ID)

		_, total, err = repo.List(0, 10, map[string]interface{}{"file_type": "pdf"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("fingerprint filter", func(t *testing.T) {
		_, total, err := repo.List(0, 10, map[string]interface{}{"fingerprint": "abc123"})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)

		_, total, err = repo.List(0, 10, map[string]interface{}{"fingerprint": "ffff"})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("time range", func(t *testing.T) {
		_, total, err := repo.List(0, 10, map[string]interface{}{
			"start_time": base.Add(90 * time.Second),
			"end_time":   base.Add(210 * time.Second),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})
}

func TestDocumentRepository_Chunks(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepository()
	require.NoError(t, repo.Create(newTestDocument("doc-1", "a.pdf")))

	chunks := []*models.DocumentChunk{
		{ChunkID: "doc-1_2_0", PageNumber: 2, ChunkIndex: 0, Content: "둘째 페이지"},
		{ChunkID: "doc-1_1_1", PageNumber: 1, ChunkIndex: 1, Content: "첫 페이지 뒷부분"},
		{ChunkID: "doc-1_1_0", PageNumber: 1, ChunkIndex: 0, Content: "첫 페이지", ProcessedContent: "페이지"},
	}

	t.Run("save and get ordered", func(t *testing.T) {
		require.NoError(t, repo.SaveChunks("doc-1", chunks))

		saved, err := repo.GetChunks("doc-1")
		require.NoError(t, err)
		require.Len(t, saved, 3)
		assert.Equal(t, "doc-1_1_0", saved[0].ChunkID)
		assert.Equal(t, "doc-1_1_1", saved[1].ChunkID)
		assert.Equal(t, "doc-1_2_0", saved[2].ChunkID)
		assert.Equal(t, "doc-1", saved[0].DocumentID)
		assert.Equal(t, "페이지", saved[0].ProcessedContent)
	})

	t.Run("save replaces previous chunks", func(t *testing.T) {
		replacement := []*models.DocumentChunk{
			{ChunkID: "doc-1_1_0", PageNumber: 1, ChunkIndex: 0, Content: "새 내용"},
		}
		require.NoError(t, repo.SaveChunks("doc-1", replacement))

		count, err := repo.CountChunks("doc-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("delete chunks", func(t *testing.T) {
		require.NoError(t, repo.DeleteChunks("doc-1"))

		count, err := repo.CountChunks("doc-1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestDocumentRepository_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDocumentRepositoryWithDB(db)
	require.NoError(t, repo.Create(newTestDocument("doc-1", "a.txt")))
	require.NoError(t, repo.SaveChunks("doc-1", []*models.DocumentChunk{
		{ChunkID: "doc-1_1_0", PageNumber: 1, Content: "내용"},
	}))

	require.NoError(t, repo.Delete("doc-1"))

	_, err := repo.GetByID("doc-1")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)

	count, err := repo.CountChunks("doc-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.Delete("doc-1"), models.ErrDocumentNotFound)
}

func TestWithContext(t *testing.T) {
	_, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	repo := WithContext(ctx, NewDocumentRepository())
	require.NoError(t, repo.Create(newTestDocument("doc-1", "a.txt")))

	cancel()
	_, err := repo.GetByID("doc-1")
	assert.Error(t, err)
}
