package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "relay-core/docs/swagger"
	"relay-core/internal/handler"
	"relay-core/internal/handler/response"
	"relay-core/pkg/monitor"
	"relay-core/pkg/validator"
)

type RouterConfig struct {
	OracleAccount string
	OracleToken   string
	Swagger       bool
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(cfg RouterConfig, relayHandler *handler.RelayHandler) *gin.Engine {
	// 0. 监控指标和校验标签
	monitor.Init()
	validator.Init()

	// 1. Engine (Logger, Recovery)
	r := gin.Default()

	// 2. 通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// 4. API 路由组
	api := r.Group("/api/v1")
	api.Use(handler.CallerMiddleware(cfg.OracleAccount, cfg.OracleToken))
	{
		api.GET("/ping", func(c *gin.Context) {
			response.Success(c, gin.H{"pong": true})
		})

		api.POST("/deposit", relayHandler.Deposit)
		api.POST("/execute", relayHandler.Execute)
		api.POST("/execute_native", relayHandler.ExecuteNative)

		// oracle
		api.POST("/bundles", relayHandler.RegisterBundle)
		api.POST("/session_keys", relayHandler.RegisterSessionKey)

		// views
		api.GET("/bundles/:path", relayHandler.GetBundle)
		api.GET("/key_usage/:public_key", relayHandler.GetKeyUsage)
		api.GET("/balances/:app_id", relayHandler.GetBalance)
		api.GET("/actions/:id", relayHandler.GetAction)
	}

	return r
}
