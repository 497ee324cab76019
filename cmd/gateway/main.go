package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"go.uber.org/zap"

	api "github.com/mind-engage/mindengage-selection/internal/api/http"
	"github.com/mind-engage/mindengage-selection/internal/app"
	auth "github.com/mind-engage/mindengage-selection/internal/auth/middleware"
	"github.com/mind-engage/mindengage-selection/internal/config"
	"github.com/mind-engage/mindengage-selection/internal/logging"
	"github.com/mind-engage/mindengage-selection/internal/selection"
)

func main() {
	cfg := config.FromEnv()

	// flags override the environment; SELECTION_* variables are also read
	fs := flag.NewFlagSet("gateway", flag.ExitOnError)
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	records := fs.String("records", string(cfg.RecordsDriver), "record store: airtable|sql|memory")
	fs.StringVar(&cfg.RubricFile, "rubric", cfg.RubricFile, "rubric YAML overriding the built-in stages")
	fs.IntVar(&cfg.SelectionCutoff, "cutoff", cfg.SelectionCutoff, "last rank counted as selected")
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("SELECTION")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.RecordsDriver = config.RecordsDriver(*records)

	log, err := logging.New(cfg.Mode == config.ModeOnline, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	a, err := app.Build(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if cfg.AdminPassHash == "" {
		log.Warn("ADMIN_PASS_HASH not set; only accounts in the users table can log in")
	}
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, a.DB, cfg.AdminUser, cfg.AdminPassHash, log)

	r := api.NewRouter(api.Deps{
		Service:     a.Service,
		Desks:       selection.NewDesks(a.Service),
		Auth:        authSvc,
		DB:          a.DB,
		AdminUser:   cfg.AdminUser,
		Blobs:       a.Blobs,
		Audit:       a.Events,
		CORSOrigins: cfg.CORSOrigins(),
		Log:         log,
		Ready:       func(r *http.Request) error { return a.Ping(r.Context()) },
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("mode", string(cfg.Mode)),
			zap.String("records", string(cfg.RecordsDriver)), zap.String("db", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
