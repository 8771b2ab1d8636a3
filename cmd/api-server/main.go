package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"todo-app-backend/internal/api"
	"todo-app-backend/internal/api/middleware"
	"todo-app-backend/internal/api/router"
	"todo-app-backend/internal/database"
	"todo-app-backend/internal/env"
	internaljwt "todo-app-backend/internal/jwt"
	"todo-app-backend/internal/logger"
	"todo-app-backend/internal/queue"
	authsvc "todo-app-backend/internal/service/auth"
	"todo-app-backend/internal/service/todolist"
)

const version = "0.1.0"

func main() {
	env.Load()

	log := logger.Init(logger.Config{
		Service: "api-server",
		Version: version,
		Env:     env.GetOrDefault(env.AppEnv, "dev"),
		Backend: logger.Backend(env.GetOrDefault(env.LogBackend, string(logger.BackendStd))),
		Level:   logger.ParseLevel(env.Get(env.LogLevel)),
	})

	if err := env.Require(env.AWSRegion, env.UserSecretKey); err != nil {
		log.Error("missing configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDatabase(ctx, database.ConfigFromEnv())
	if err != nil {
		log.Error("db init failed", "error", err)
		os.Exit(1)
	}

	issuer, err := internaljwt.NewIssuer(env.Get(env.UserSecretKey), internaljwt.DefaultTokenTTL)
	if err != nil {
		log.Error("token issuer init failed", "error", err)
		os.Exit(1)
	}

	queueManager := queue.NewRequestQueueManagerWithLogger(100, 10, log)
	defer queueManager.Shutdown()

	server := api.NewAPIServer(
		":"+env.GetOrDefault(env.APIPort, "8080"),
		queueManager,
		api.Options{
			Auth:  authsvc.New(db, issuer),
			Lists: todolist.New(db),
			CORS:  middleware.DefaultCORSConfig(env.GetOrDefault(env.AllowedOrigin, env.DefaultAllowedOrigin)),
			Log:   log,
		},
		router.All("/api/v1")...,
	)

	if err := server.Run(ctx); err != nil {
		log.Error("api server failed", "error", err)
		os.Exit(1)
	}
}
