package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mb29661/LV418/internal/handlers"
	"github.com/Mb29661/LV418/internal/logger"
	"github.com/Mb29661/LV418/internal/mailer"
	"github.com/Mb29661/LV418/internal/perifal"
	"github.com/Mb29661/LV418/internal/repository"
	"github.com/Mb29661/LV418/internal/repository/db"
	"github.com/Mb29661/LV418/internal/server"
	"github.com/Mb29661/LV418/internal/service"

	"github.com/spf13/viper"
)

func main() {
	log := logger.Get(logger.InfoLevel)

	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	username := viper.GetString("perifal.username")
	password := viper.GetString("perifal.password")
	if username == "" || password == "" {
		log.Fatalw("PERIFAL_USERNAME and PERIFAL_PASSWORD must be set")
	}

	conn, driver, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to open database", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close database", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(conn, driver)

	factory := func() service.CloudClient {
		return perifal.NewClient(viper.GetString("perifal.base_url"), username, password, log)
	}

	mail := mailer.NewSMTP(
		viper.GetString("smtp.host"),
		viper.GetInt("smtp.port"),
		viper.GetString("smtp.username"),
		viper.GetString("smtp.password"),
		log,
	)

	cfg := service.Config{
		DeviceCode:    viper.GetString("perifal.device_code"),
		AppURL:        viper.GetString("app_url"),
		AdminEmail:    viper.GetString("admin.email"),
		AdminPassword: viper.GetString("admin.password"),
		SigningKey:    viper.GetString("session_key"),
		PollInterval:  viper.GetDuration("poll_interval"),
	}

	services := service.NewService(repos, factory, mail, cfg, log)
	apiHandler := handlers.NewHandler(services, cfg.SigningKey, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := services.Authorization.EnsureAdmin(ctx); err != nil {
		cancel()
		log.Fatalw("failed to ensure admin account", "err", err)
	}
	cancel()

	services.Poller.Start()

	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(srv, services, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")

	viper.SetDefault("port", "5051")
	viper.SetDefault("poll_interval", "10m")
	viper.SetDefault("app_url", "http://localhost:5051")

	// Secrets come from the environment, never the config file.
	bindings := map[string]string{
		"perifal.username":    "PERIFAL_USERNAME",
		"perifal.password":    "PERIFAL_PASSWORD",
		"perifal.device_code": "PERIFAL_DEVICE_CODE",
		"db.url":              "DATABASE_URL",
		"smtp.host":           "SMTP_HOST",
		"smtp.port":           "SMTP_PORT",
		"smtp.username":       "SMTP_USERNAME",
		"smtp.password":       "SMTP_PASSWORD",
		"session_key":         "SESSION_KEY",
		"admin.email":         "ADMIN_EMAIL",
		"admin.password":      "ADMIN_PASSWORD",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	return viper.ReadInConfig()
}

// openDB selects the backend: a DATABASE_URL means Postgres, otherwise the
// local SQLite file from the config.
func openDB(log *logger.Logger) (*sql.DB, string, error) {
	if url := viper.GetString("db.url"); url != "" {
		log.Infow("using postgres backend")
		conn, err := db.OpenPostgres(url)
		return conn, db.DriverPostgres, err
	}

	path := viper.GetString("db.path")
	if path == "" {
		path = "heatpump_data.db"
	}
	log.Infow("using sqlite backend", "path", path)
	conn, err := db.OpenSQLite(path)
	return conn, db.DriverSQLite, err
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	log.Infow("dashboard listening", "port", port)
}

// waitForShutdown listens for termination signals, stops the poller and
// performs graceful shutdown.
func waitForShutdown(srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	services.Poller.Stop()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
