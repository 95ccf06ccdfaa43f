package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.ReadCloser) string {
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func sha(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// testStorage 本地和MinIO实现共用的行为测试
func testStorage(t *testing.T, s Storage) {
	ctx := context.Background()
	content := "인공지능 기술은 빠르게 발전하고 있다."

	info, err := s.Save(ctx, strings.NewReader(content), "보고서.txt")
	require.NoError(t, err)

	t.Run("save", func(t *testing.T) {
		assert.Equal(t, sha(content), info.ID)
		assert.Equal(t, info.ID, info.Fingerprint)
		assert.Equal(t, "보고서.txt", info.Name)
		assert.Equal(t, int64(len(content)), info.Size)
		assert.Equal(t, "text/plain", info.MimeType)
	})

	t.Run("duplicate content dedupes", func(t *testing.T) {
		again, err := s.Save(ctx, strings.NewReader(content), "copy.txt")
		require.NoError(t, err)
		assert.Equal(t, info.ID, again.ID)
		assert.Equal(t, info.Path, again.Path)

		files, err := s.List(ctx)
		require.NoError(t, err)
		count := 0
		for _, f := range files {
			if f.ID == info.ID {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("get", func(t *testing.T) {
		r, err := s.Get(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, content, readAll(t, r))
	})

	t.Run("exists", func(t *testing.T) {
		exists, err := s.Exists(ctx, info.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = s.Exists(ctx, sha("missing"))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, sha("missing"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, info.ID))

		exists, err := s.Exists(ctx, info.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		assert.ErrorIs(t, s.Delete(ctx, info.ID), ErrFileNotFound)
	})
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{Path: dir})
	require.NoError(t, err)

	testStorage(t, s)

	t.Run("layout", func(t *testing.T) {
		info, err := s.Save(context.Background(), strings.NewReader("layout"), "Doc.PDF")
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(info.ID[:2], info.ID+".pdf"), info.Path)
		assert.FileExists(t, filepath.Join(dir, info.Path))
		assert.Equal(t, "application/pdf", info.MimeType)
	})

	t.Run("no temp files left", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), ".upload-"), e.Name())
		}
	})

	t.Run("rejects path ids", func(t *testing.T) {
		_, err := s.Get(context.Background(), "../etc/passwd")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Save(ctx, strings.NewReader("x"), "x.txt")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// TestMinioStorage 需要设置MINIO_ENDPOINT并启动MinIO服务
func TestMinioStorage(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set, skipping MinIO tests")
	}

	s, err := NewMinioStorage(MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "kosearch-test",
	})
	require.NoError(t, err)

	testStorage(t, s)

	files, err := s.List(context.Background())
	require.NoError(t, err)
	for _, f := range files {
		_ = s.Delete(context.Background(), f.ID)
	}
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(Config{Type: "local", Local: LocalConfig{Path: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = NewStorage(Config{Type: "s3"})
	assert.Error(t, err)
}
