package handler

import (
	"net/http"
	"path/filepath"

	"github.com/fyerfyer/ko-doc-search/api/middleware"
	"github.com/fyerfyer/ko-doc-search/api/model"
	"github.com/fyerfyer/ko-doc-search/internal/document"
	"github.com/fyerfyer/ko-doc-search/internal/services"
	"github.com/fyerfyer/ko-doc-search/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DocumentHandler 处理文档相关的API请求
type DocumentHandler struct {
	search *services.SearchService // 检索服务，负责文档入库和索引
	logger *logrus.Logger
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(search *services.SearchService) *DocumentHandler {
	return &DocumentHandler{
		search: search,
		logger: middleware.GetLogger(),
	}
}

// UploadDocument 处理文档上传请求
// POST /api/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var req model.DocumentUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		bindFailed(c, err)
		return
	}

	filename := filepath.Base(req.File.Filename)
	if !document.IsSupported(filename) {
		fail(c, document.ErrUnsupportedType, "")
		return
	}

	file, err := req.File.Open()
	if err != nil {
		fail(c, err, "failed to open uploaded file")
		return
	}
	defer file.Close()

	doc, taskID, err := h.search.Upload(c.Request.Context(), file, filename)
	if err != nil {
		fail(c, err, "failed to upload document")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"doc_id":   doc.ID,
		"filename": filename,
		"size":     doc.FileSize,
		"task_id":  taskID,
	}).Info("Document uploaded")

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentUploadResponse{
		DocumentID: doc.ID,
		FileName:   filename,
		Status:     string(doc.Status),
		TaskID:     taskID,
	}))
}

// GetDocument 获取文档信息和索引任务
// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		bindFailed(c, err)
		return
	}

	doc, err := h.search.GetDocument(c.Request.Context(), req.ID)
	if err != nil {
		fail(c, err, "failed to get document")
		return
	}

	resp := model.DocumentStatusResponse{DocumentInfo: model.NewDocumentInfo(doc)}

	tasks, err := h.search.GetDocumentTasks(c.Request.Context(), req.ID)
	if err != nil {
		// 任务记录只是附加信息
		h.logger.WithError(err).WithField("doc_id", req.ID).Warn("Failed to load document tasks")
	}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, taskqueue.NewTaskInfo(task))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// ListDocuments 获取文档列表
// GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var req model.DocumentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	filters := map[string]interface{}{}
	if req.Status != "" {
		filters["status"] = req.Status
	}
	if req.FileName != "" {
		filters["file_name"] = req.FileName
	}

	docs, total, err := h.search.ListDocuments(c.Request.Context(), req.Offset(), req.GetPageSize(), filters)
	if err != nil {
		fail(c, err, "failed to list documents")
		return
	}

	resp := model.DocumentListResponse{
		Total:     total,
		Page:      req.GetPage(),
		PageSize:  req.GetPageSize(),
		Documents: make([]model.DocumentInfo, 0, len(docs)),
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, model.NewDocumentInfo(doc))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// GetChunks 获取文档的分块和关键词
// GET /api/documents/:id/chunks
func (h *DocumentHandler) GetChunks(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		bindFailed(c, err)
		return
	}

	chunks, err := h.search.GetChunks(c.Request.Context(), req.ID)
	if err != nil {
		fail(c, err, "failed to get chunks")
		return
	}

	resp := model.ChunkListResponse{
		DocumentID: req.ID,
		Total:      len(chunks),
		Chunks:     make([]model.ChunkInfo, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		resp.Chunks = append(resp.Chunks, model.NewChunkInfo(chunk))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// DeleteDocument 删除文档及其索引
// DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		bindFailed(c, err)
		return
	}

	if err := h.search.DeleteDocument(c.Request.Context(), req.ID); err != nil {
		fail(c, err, "failed to delete document")
		return
	}

	h.logger.WithField("doc_id", req.ID).Info("Document deleted")
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentDeleteResponse{
		Success:    true,
		DocumentID: req.ID,
	}))
}

// ReindexDocument 重新索引文档
// POST /api/documents/:id/reindex
func (h *DocumentHandler) ReindexDocument(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		bindFailed(c, err)
		return
	}

	taskID, err := h.search.Reindex(c.Request.Context(), req.ID)
	if err != nil {
		fail(c, err, "failed to reindex document")
		return
	}

	c.JSON(http.StatusAccepted, model.NewSuccessResponse(model.ReindexResponse{
		DocumentID: req.ID,
		TaskID:     taskID,
	}))
}
