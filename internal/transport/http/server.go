package http

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"docchat/internal/app"
	"docchat/internal/bootstrap"
	"docchat/internal/config"
	"docchat/internal/metrics"
	"docchat/internal/platform/logger"
	"docchat/internal/transport/http/handler"
	"docchat/internal/transport/http/middleware"
	"docchat/internal/transport/http/response"
)

// RouterDeps is everything the routes need.
type RouterDeps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Turns     *app.TurnService
	Chats     *app.ChatService
	Documents *app.DocumentService
	Health    *handler.HealthHandler
}

func NewRouter(a *bootstrap.App) *gin.Engine {
	return Routes(RouterDeps{
		Config:    a.Config,
		Logger:    a.Logger,
		Metrics:   a.Metrics,
		Gatherer:  a.Registry,
		Turns:     a.Turns,
		Chats:     a.Chats,
		Documents: a.Documents,
		Health: handler.NewHealthHandler(a.Config.App.Name, a.Config.App.Env, a.StartedAt, map[string]handler.Checker{
			"database": handler.DatabaseCheck(a.DB),
			"redis":    handler.RedisCheck(a.Redis),
			"rabbitmq": handler.RabbitMQCheck(a.MQConn),
			"storage":  handler.StorageCheck(a.Storage),
		}),
	})
}

func Routes(deps RouterDeps) *gin.Engine {
	gin.SetMode(deps.Config.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(deps.Logger),
		middleware.Metrics(deps.Metrics.HTTPRequests),
		middleware.Recovery(deps.Logger),
		middleware.CORS(deps.Config.App.CORSOrigins),
		otelgin.Middleware(deps.Config.App.Name),
	)

	router.StaticFile("/", filepath.Join(deps.Config.App.StaticDir, "index.html"))
	router.GET("/healthz", deps.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	chatHandler := handler.NewChatHandler(deps.Turns, deps.Chats, deps.Logger)
	documentHandler := handler.NewDocumentHandler(deps.Documents, deps.Config.Upload.MaxBytes)

	api := router.Group("/api")
	api.POST("/chat", chatHandler.Turn)
	api.POST("/upload", documentHandler.Upload)
	api.GET("/chats", chatHandler.ListChats)
	api.GET("/chats/:id/messages", chatHandler.ListMessages)
	api.DELETE("/chats/:id", chatHandler.DeleteChat)
	api.GET("/documents/:id/url", documentHandler.DownloadURL)

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeRouteNotFound, "route not found")
	})

	return router
}
