package handler

import (
	"net/http"

	"github.com/fyerfyer/ko-doc-search/api/model"
	"github.com/fyerfyer/ko-doc-search/internal/services"
	"github.com/gin-gonic/gin"
)

// AnalysisHandler 处理文本分析请求
type AnalysisHandler struct {
	analysis *services.AnalysisService
}

// NewAnalysisHandler 创建分析处理器
func NewAnalysisHandler(analysis *services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

// Analyze 分析一段文本
// POST /api/analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.analysis.Analyze(c.Request.Context(), req.Text)
	if err != nil {
		fail(c, err, "analysis failed")
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// NormalizeKeywords 生成关键词变体
// POST /api/keywords/normalize
func (h *AnalysisHandler) NormalizeKeywords(c *gin.Context) {
	var req model.NormalizeKeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NormalizeKeywordsResponse{
		Keywords:   req.Keywords,
		Variations: h.analysis.NormalizeKeywords(req.Keywords),
	}))
}

// Compounds 拆分复合词
// GET /api/compounds/:word
func (h *AnalysisHandler) Compounds(c *gin.Context) {
	var req model.CompoundRequest
	if err := c.ShouldBindUri(&req); err != nil {
		bindFailed(c, err)
		return
	}

	parts, err := h.analysis.Compounds(req.Word)
	if err != nil {
		fail(c, err, "compound detection failed")
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.CompoundResponse{
		Word:       req.Word,
		Parts:      parts,
		IsCompound: len(parts) > 0,
	}))
}
