package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/readtalk/log/internal/config"
	"github.com/readtalk/log/internal/issuer"
	issuerrepo "github.com/readtalk/log/internal/issuer/repo"
	"github.com/readtalk/log/internal/profile"
	"github.com/readtalk/log/internal/router"
	"github.com/readtalk/log/internal/state"
	"github.com/readtalk/log/internal/token"
	"github.com/readtalk/log/internal/user"
	userrepo "github.com/readtalk/log/internal/user/repo"
	"github.com/readtalk/log/pkg/database"
	"github.com/readtalk/log/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.NewLogger(utilities.LogConfig{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting readtalk auth front-end")

	db, err := database.Connect(database.Config{DSN: cfg.DatabaseURL})
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// idempotent DDL for early development; prefer migrations in production
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer setupCancel()

	users := userrepo.NewUserRepo(db)
	if err := users.EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}
	store := state.NewPostgresStore(db)
	if err := store.EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure auth_state table: %v", err)
	}
	creds := issuerrepo.NewCredentialRepo(db)
	if err := creds.EnsureTable(setupCtx); err != nil {
		sugar.Fatalf("ensure issuer_credentials table: %v", err)
	}

	minter := token.NewMinter([]byte(cfg.TokenSecret), "readtalk-log", cfg.TokenTTL)
	dir := user.NewService(db, users)
	ph := profile.NewHandler(dir, store, minter, cfg.ChatAppURL, cfg.StateTTL, sugar)
	isvc := issuer.NewService(db, creds, store, cfg.StateTTL)
	ih := issuer.NewHandler(isvc, ph.CompleteAuthentication, sugar)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router.RegisterRoutes(sugar, ph, ih),
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
