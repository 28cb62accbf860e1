package api

import (
	stdhttp "net/http"

	"corpusdash/internal/config"
	h "corpusdash/internal/http/handlers"
	"corpusdash/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter mounts every endpoint on a fresh gin engine. Each configured
// view gets its own GET /api/<route>.
func NewRouter(cfg *config.Config, hd *h.Handler, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(log), gin.Recovery(), middleware.CORS(cfg.App.CORSOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn("failed to set trusted proxies", zap.Error(err))
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"code":   "not_found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", hd.Health)
		api.GET("/db-check", hd.DBCheck)
		api.GET("/routes", hd.Routes)
		api.GET("/views", hd.ListViews)

		api.GET("/file", hd.FileContent)
		api.GET("/report/:view", hd.Report)

		for _, name := range cfg.ViewNames() {
			api.GET("/"+cfg.Views[name].Route, hd.Table(name))
		}
	}

	r.GET("/download", hd.Download)

	hd.SetRouter(r)
	return r
}
