package handler

import (
	"net/http"

	"github.com/fyerfyer/ko-doc-search/api/middleware"
	"github.com/fyerfyer/ko-doc-search/api/model"
	"github.com/fyerfyer/ko-doc-search/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SearchHandler 处理检索请求
type SearchHandler struct {
	search *services.SearchService
	logger *logrus.Logger
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{
		search: search,
		logger: middleware.GetLogger(),
	}
}

// Search 关键词检索
// GET /api/search?q=&limit=&file=
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	hits, err := h.search.Search(c.Request.Context(), req.Query, req.Limit, req.File)
	if err != nil {
		fail(c, err, "search failed")
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewSearchResponse(req.Query, hits)))
}

// IndexStats 索引统计
// GET /api/index/stats
func (h *SearchHandler) IndexStats(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.search.DocumentCount(ctx)
	if err != nil {
		fail(c, err, "failed to count index entries")
		return
	}

	resp := model.IndexStatsResponse{IndexedChunks: count}
	if _, total, err := h.search.ListDocuments(ctx, 0, 1, nil); err == nil {
		resp.Documents = total
	} else {
		h.logger.WithError(err).Debug("Document registry unavailable for stats")
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}
