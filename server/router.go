package server

import (
	"net/http"
	"time"

	"github.com/bradenn/hwdemo/controllers"
	"github.com/bradenn/hwdemo/waitlist"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the collaborators the router hands to its controllers.
type Deps struct {
	WorkDir  string
	Jobs     *controllers.JobStore
	Waitlist *waitlist.Client
	Logger   *zap.Logger

	CheckCmd     []string
	CheckTimeout time.Duration
}

func NewRouter(d Deps) (r *gin.Engine) {
	r = gin.New()
	r.Use(requestLogger(d.Logger), gin.Recovery())
	r.MaxMultipartMemory = 8 << 20

	generate := controllers.GenerateController{Logger: d.Logger}
	compile := controllers.CompileController{
		WorkDir:      d.WorkDir,
		Jobs:         d.Jobs,
		Logger:       d.Logger,
		CheckCmd:     d.CheckCmd,
		CheckTimeout: d.CheckTimeout,
	}
	signup := controllers.WaitlistController{Client: d.Waitlist}

	api := r.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.POST("/generate", generate.Generate)
		api.POST("/compile", compile.Compile)
		api.GET("/download/:id", compile.Download)
		api.POST("/waitlist", signup.Join)
	}

	return
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	}
}
