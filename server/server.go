package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bradenn/hwdemo/config"
	"github.com/bradenn/hwdemo/controllers"
	"github.com/bradenn/hwdemo/waitlist"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run serves the demo backend until ctx is cancelled, then removes job
// workspaces.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	jobs := controllers.NewJobStore(cfg.JobTTL, logger)
	defer func() {
		if err := jobs.Close(); err != nil {
			logger.Warn("could not clean up job workspaces", zap.Error(err))
		}
	}()

	r := NewRouter(Deps{
		WorkDir:  cfg.WorkDir,
		Jobs:     jobs,
		Waitlist: waitlist.NewClient(cfg.WaitlistEndpoint, cfg.HTTPTimeout, logger),
		Logger:   logger,

		CheckCmd:     cfg.ModelCheckCmd,
		CheckTimeout: cfg.ModelCheckTimeout,
	})

	srv := &http.Server{Addr: cfg.Listen(), Handler: r}
	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("listen", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down server")
	return srv.Shutdown(shutdown)
}
