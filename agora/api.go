package agora

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
)

// API is a small operational HTTP surface: liveness, a view of the
// guild document cache, and a manual flush trigger. It binds to
// localhost by default and carries no authentication.
type API struct {
	agora  *Agora
	config *APIConfig
	logger *slog.Logger
	engine *gin.Engine
	server *http.Server
}

func newAPI(a *Agora, cfg *APIConfig) *API {
	gin.SetMode(gin.ReleaseMode)
	api := &API{
		agora:  a,
		config: cfg,
		logger: slog.New(a.logHandler).With(loggerNameKey, "api"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", api.getHealth)
	apiGroup := engine.Group("/api")
	apiGroup.GET("/guilds", api.getGuilds)
	apiGroup.POST("/flush", api.postFlush)

	api.engine = engine
	api.server = &http.Server{
		Addr:              cfg.Listen,
		Handler:           engine,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	return api
}

// Serve runs the API until ctx is canceled.
func (a *API) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second,
		)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error shutting down api server", tint.Err(err))
		}
	}()

	a.logger.Info("admin api listening", slog.String("listen", a.config.Listen))
	err := a.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) getHealth(c *gin.Context) {
	status := "ok"
	if a.agora.discord != nil && !a.agora.discord.Connected() {
		status = "disconnected"
	}
	c.JSON(
		http.StatusOK, gin.H{
			"status":     status,
			"version":    Version,
			"started_at": a.agora.startedAt,
			"guilds":     a.agora.GuildCount(),
		},
	)
}

func (a *API) getGuilds(c *gin.Context) {
	c.JSON(
		http.StatusOK, gin.H{
			"active": a.agora.GuildCount(),
			"cache":  a.agora.Store().Stats(),
		},
	)
}

func (a *API) postFlush(c *gin.Context) {
	if err := a.agora.Store().FlushAll(); err != nil {
		a.logger.Error("manual flush failed", tint.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": true})
}
