package api

import (
	"net/http"

	"github.com/fyerfyer/ko-doc-search/api/handler"
	"github.com/fyerfyer/ko-doc-search/api/middleware"
	"github.com/fyerfyer/ko-doc-search/api/model"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	docHandler *handler.DocumentHandler,
	searchHandler *handler.SearchHandler,
	analysisHandler *handler.AnalysisHandler,
) *gin.Engine {
	if err := model.RegisterValidators(); err != nil {
		middleware.GetLogger().WithError(err).Error("Failed to register request validators")
	}

	router := gin.New()

	router.Use(Cors())
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
		router.Use(middleware.ResponseLogger())
	}

	api := router.Group("/api")
	{
		docGroup := api.Group("/documents")
		{
			docGroup.POST("", docHandler.UploadDocument)
			docGroup.GET("", docHandler.ListDocuments)
			docGroup.GET("/:id", docHandler.GetDocument)
			docGroup.GET("/:id/chunks", docHandler.GetChunks)
			docGroup.DELETE("/:id", docHandler.DeleteDocument)
			docGroup.POST("/:id/reindex", docHandler.ReindexDocument)
		}

		api.GET("/search", searchHandler.Search)
		api.GET("/index/stats", searchHandler.IndexStats)

		api.POST("/analyze", analysisHandler.Analyze)
		api.POST("/keywords/normalize", analysisHandler.NormalizeKeywords)
		api.GET("/compounds/:word", analysisHandler.Compounds)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
