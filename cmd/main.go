// @title        message.ly API
// @version      1.0
// @description  Direct messaging between registered users.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "messagely/docs"
	"messagely/internal/config"
	"messagely/internal/handlers"
	"messagely/internal/logger"
	"messagely/internal/metrics"
	"messagely/internal/repository"
	"messagely/internal/repository/db"
	"messagely/internal/server"
	"messagely/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default configs/config.yml)")
	flag.Parse()

	// load config.yml + env
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get(logger.InfoLevel, logger.FormatConsole).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if cfg.Log.Level != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// open DB and apply migrations
	conn, err := openDB(cfg.DB, log)
	if err != nil {
		log.Fatalw("failed to init store", "driver", cfg.DB.Driver, "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close store", "err", cerr)
		}
	}()

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// wire dependencies
	repos := repository.NewRepository(conn, cfg.DB.Driver)
	services := service.NewService(repos, service.AuthConfig{
		Secret:     []byte(cfg.Auth.Secret),
		BcryptCost: cfg.Auth.BcryptCost,
		TokenTTL:   cfg.Auth.TokenTTL,
	}, service.Deps{Log: log, Metrics: collector})
	apiHandler := handlers.NewHandler(services, log,
		handlers.WithMetrics(collector, reg),
		handlers.WithInboxInterval(cfg.WS.PollInterval),
	)

	// start HTTP server
	srv := server.New(server.Options{
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	})
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, services, cfg.Server, log)
}

// openDB connects to the configured store; driver names match db dialects.
func openDB(cfg config.DBConfig, log *logger.Logger) (*sql.DB, error) {
	log.Infow("opening store", "driver", cfg.Driver)
	return db.Open(context.Background(), cfg.Driver, cfg.DSN)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		log.Infow("http server listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, services *service.Service, cfg config.ServerConfig, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// let pending last-login writes land before the store closes
	services.Wait()
}
