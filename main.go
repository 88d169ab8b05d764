// Command shopchat is the storefront messaging API: conversations between
// customers and staff, paged message history, @mention resolution and the
// user directory behind mention autocomplete.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/akinalp/shopchat/config"
	"github.com/akinalp/shopchat/database"
	"github.com/akinalp/shopchat/middleware"
	"github.com/akinalp/shopchat/pkg/logger"
	"github.com/akinalp/shopchat/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger config yet.
		logger.New("info").Fatal("failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.LogLevel).Named("main")
	defer func() { _ = log.Sync() }()
	log.Info("shopchat server starting", zap.Int("port", cfg.Server.Port))

	// ─── Database ───
	db, err := database.Open(cfg.Database.Path, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// ─── Wire-up ───
	app := newApp(db, cfg, log)
	defer app.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── Graceful shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-done
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
		return
	}

	log.Info("server stopped gracefully")
}

// App is the fully wired HTTP application.
type App struct {
	Handler  http.Handler
	Services *Services
	Repos    *Repositories
	Metrics  *metrics.Metrics
	limiters *RateLimiters
}

// newApp builds repositories, services, handlers and routes, then wraps the
// mux in request logging and CORS.
func newApp(db *database.DB, cfg *config.Config, log *zap.Logger) *App {
	m := metrics.New()
	repos := initRepositories(db.Conn)
	svcs, limiters := initServices(db.Conn, repos, cfg, m, log)
	h := initHandlers(svcs, limiters)

	mux := http.NewServeMux()
	initRoutes(mux, h, m, svcs.Auth, repos.User, repos.Conversation)

	var handler http.Handler = mux
	handler = middleware.Instrument(m)(handler)
	handler = middleware.RequestLogger(log)(handler)
	if len(cfg.Server.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.Server.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(handler)
	}

	return &App{Handler: handler, Services: svcs, Repos: repos, Metrics: m, limiters: limiters}
}

// Close releases background resources; the database is closed by its owner.
func (a *App) Close() {
	a.Services.Close(a.limiters)
}
