package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fyerfyer/ko-doc-search/api/handler"
	"github.com/fyerfyer/ko-doc-search/api/model"
	"github.com/fyerfyer/ko-doc-search/internal/cache"
	"github.com/fyerfyer/ko-doc-search/internal/database"
	"github.com/fyerfyer/ko-doc-search/internal/index"
	"github.com/fyerfyer/ko-doc-search/internal/models"
	"github.com/fyerfyer/ko-doc-search/internal/nlp"
	"github.com/fyerfyer/ko-doc-search/internal/repository"
	"github.com/fyerfyer/ko-doc-search/internal/services"
	"github.com/fyerfyer/ko-doc-search/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const reportText = "인공지능 기술은 빠르게 발전하고 있다. 머신러닝과 딥러닝이 핵심이다.\f클라우드컴퓨팅 서비스가 확산되고 있다."

// 测试环境配置
type testEnv struct {
	Router *gin.Engine
	Search *services.SearchService
}

// 创建测试环境
func setupTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { sqlDB.Close() })

	idx, err := index.NewMemoryIndex(index.DefaultConfig())
	require.NoError(t, err)

	fileStorage, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	cacheService, err := cache.NewCache(cache.Config{
		Type:            "memory",
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Minute,
	})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	analyzer := nlp.NewAnalyzer(nlp.WithLogger(logger))

	search := services.NewSearchService(idx, analyzer,
		services.WithRepository(repository.NewDocumentRepositoryWithDB(db)),
		services.WithStorage(fileStorage),
		services.WithCache(cacheService),
		services.WithLogger(logger),
	)
	t.Cleanup(func() { search.Close() })

	analysis := services.NewAnalysisService(analyzer, cacheService, time.Minute, logger)

	router := SetupRouter(
		handler.NewDocumentHandler(search),
		handler.NewSearchHandler(search),
		handler.NewAnalysisHandler(analysis),
	)

	return &testEnv{Router: router, Search: search}
}

// do 发送请求并解析统一响应
func (e *testEnv) do(t *testing.T, req *http.Request, data interface{}) (*httptest.ResponseRecorder, model.Response) {
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	var resp model.Response
	if data != nil {
		resp.Data = data
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func uploadRequest(t *testing.T, fileName, content string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func searchPath(q string, extra url.Values) string {
	if extra == nil {
		extra = url.Values{}
	}
	extra.Set("q", q)
	return "/api/search?" + extra.Encode()
}

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t)

	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestDocumentLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	var uploaded model.DocumentUploadResponse
	w, resp := env.do(t, uploadRequest(t, "report.txt", reportText), &uploaded)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "report.txt", uploaded.FileName)
	assert.Equal(t, string(models.DocStatusUploaded), uploaded.Status)
	require.NotEmpty(t, uploaded.DocumentID)

	env.Search.Wait()
	docPath := "/api/documents/" + uploaded.DocumentID

	t.Run("get document", func(t *testing.T) {
		var info model.DocumentStatusResponse
		w, _ := env.do(t, httptest.NewRequest(http.MethodGet, docPath, nil), &info)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(models.DocStatusCompleted), info.Status)
		assert.Equal(t, 2, info.PageCount)
		assert.Equal(t, 2, info.ChunkCount)
		assert.Contains(t, info.Keywords, "인공지능")
		assert.Equal(t, "txt", info.FileType)
		assert.Empty(t, info.Tasks)
	})

	t.Run("get chunks", func(t *testing.T) {
		var chunks model.ChunkListResponse
		w, _ := env.do(t, httptest.NewRequest(http.MethodGet, docPath+"/chunks", nil), &chunks)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 2, chunks.Total)
		assert.Equal(t, 1, chunks.Chunks[0].PageNumber)
		assert.Equal(t, 2, chunks.Chunks[1].PageNumber)
		assert.NotEmpty(t, chunks.Chunks[0].Keywords)
	})

	t.Run("list documents", func(t *testing.T) {
		var list model.DocumentListResponse
		w, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents?status=completed", nil), &list)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), list.Total)
		assert.Equal(t, 1, list.Page)
		assert.Equal(t, 10, list.PageSize)
		require.Len(t, list.Documents, 1)
		assert.Equal(t, uploaded.DocumentID, list.Documents[0].DocumentID)

		w, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents?status=failed", nil), &list)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(0), list.Total)
		assert.NotNil(t, list.Documents)
	})

	t.Run("search", func(t *testing.T) {
		var result model.SearchResponse
		w, _ := env.do(t, httptest.NewRequest(http.MethodGet, searchPath("인공지능", nil), nil), &result)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 1, result.Total)
		assert.Equal(t, "report.txt", result.Results[0].FileName)
		assert.Equal(t, 1, result.Results[0].PageNumber)
		assert.Greater(t, result.Results[0].Score, 0.0)

		w, _ = env.do(t, httptest.NewRequest(http.MethodGet, searchPath("인공지능", url.Values{"file": {"other.txt"}}), nil), &result)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, result.Total)
		assert.NotNil(t, result.Results)
	})

	t.Run("index stats", func(t *testing.T) {
		var stats model.IndexStatsResponse
		w, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/index/stats", nil), &stats)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uint64(2), stats.IndexedChunks)
		assert.Equal(t, int64(1), stats.Documents)
	})

	t.Run("reindex", func(t *testing.T) {
		var reindex model.ReindexResponse
		w, _ := env.do(t, httptest.NewRequest(http.MethodPost, docPath+"/reindex", nil), &reindex)
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, uploaded.DocumentID, reindex.DocumentID)
		env.Search.Wait()

		status, err := env.Search.StatusManager().GetStatus(context.Background(), uploaded.DocumentID)
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusCompleted, status)
	})

	t.Run("delete", func(t *testing.T) {
		var deleted model.DocumentDeleteResponse
		w, _ := env.do(t, httptest.NewRequest(http.MethodDelete, docPath, nil), &deleted)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, deleted.Success)

		w, resp := env.do(t, httptest.NewRequest(http.MethodGet, docPath, nil), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.NotEmpty(t, resp.TraceID)

		var result model.SearchResponse
		w, _ = env.do(t, httptest.NewRequest(http.MethodGet, searchPath("인공지능", nil), nil), &result)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, result.Total)
	})
}

func TestUploadValidation(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("unsupported type", func(t *testing.T) {
		w, resp := env.do(t, uploadRequest(t, "virus.exe", "MZ"), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, resp.Message, "unsupported file type")
	})

	t.Run("missing file", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("name", "x"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		w, _ := env.do(t, req, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		w, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/documents?status=deleted", nil), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReindexConflict(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	manager := env.Search.StatusManager()

	require.NoError(t, manager.MarkAsUploaded(ctx, &models.Document{ID: "busy", FileName: "busy.txt", FilePath: "x"}))
	require.NoError(t, manager.MarkAsProcessing(ctx, "busy"))

	w, resp := env.do(t, httptest.NewRequest(http.MethodPost, "/api/documents/busy/reindex", nil), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, http.StatusConflict, resp.Code)

	w, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/api/documents/missing/reindex", nil), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchValidation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"missing query", "/api/search", http.StatusBadRequest},
		{"blank query", searchPath("   ", nil), http.StatusBadRequest},
		{"limit too large", searchPath("인공지능", url.Values{"limit": {"1000"}}), http.StatusBadRequest},
		{"empty index", searchPath("인공지능", url.Values{"limit": {"5"}}), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := env.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil), nil)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestAnalysisEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("analyze", func(t *testing.T) {
		var analysis services.Analysis
		w, _ := env.do(t, jsonRequest(t, http.MethodPost, "/api/analyze", model.AnalyzeRequest{Text: "인공지능 기술은 빠르게 발전하고 있다."}), &analysis)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NotEmpty(t, analysis.Keywords)
		assert.Equal(t, "인공지능", analysis.Keywords[0].Term)
		assert.Contains(t, analysis.Processed, "지능")
	})

	t.Run("analyze blank text", func(t *testing.T) {
		w, resp := env.do(t, jsonRequest(t, http.MethodPost, "/api/analyze", model.AnalyzeRequest{Text: "  "}), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, resp.Message, "notblank")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w, _ := env.do(t, req, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("normalize keywords", func(t *testing.T) {
		var normalized model.NormalizeKeywordsResponse
		w, _ := env.do(t, jsonRequest(t, http.MethodPost, "/api/keywords/normalize", model.NormalizeKeywordsRequest{Keywords: []string{"인공지능", "AI"}}), &normalized)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"인공지능", "인공", "지능", "AI"}, normalized.Variations)

		w, _ = env.do(t, jsonRequest(t, http.MethodPost, "/api/keywords/normalize", model.NormalizeKeywordsRequest{}), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("compounds", func(t *testing.T) {
		var compound model.CompoundResponse
		w, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/compounds/"+url.PathEscape("머신러닝"), nil), &compound)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, compound.IsCompound)
		assert.Equal(t, []string{"머신", "러닝"}, compound.Parts)

		compound = model.CompoundResponse{}
		w, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/compounds/"+url.PathEscape("딥러닝"), nil), &compound)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, compound.IsCompound)
		assert.Equal(t, []string{}, compound.Parts)
	})
}
