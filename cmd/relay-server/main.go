package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-app-backend/internal/env"
	"todo-app-backend/internal/logger"
	"todo-app-backend/internal/relay"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

func main() {
	env.Load()

	instanceID := env.Get(env.RelayInstanceID)
	if instanceID == "" {
		hn, _ := os.Hostname()
		instanceID = hn + "-" + uuid.NewString()[:8]
	}

	log := logger.Init(logger.Config{
		Service:    "relay-server",
		Version:    version,
		Env:        env.GetOrDefault(env.AppEnv, "dev"),
		InstanceID: instanceID,
		Backend:    logger.Backend(env.GetOrDefault(env.LogBackend, string(logger.BackendStd))),
		Level:      logger.ParseLevel(env.Get(env.LogLevel)),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := relay.NewHub(log)

	if addr := env.Get(env.RedisURL); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: env.Get(env.RedisPass),
			DB:       0,
		})
		defer client.Close()

		bridge := relay.NewRedisBridge(client, instanceID, hub, log)
		hub.UseBridge(bridge)
		// Reconnects on its own; frames are not bridged while redis is down.
		go bridge.Run(ctx)
		log.Info("redis bridge enabled", "addr", addr)
	}

	go hub.Run(ctx)

	mux := http.NewServeMux()
	relay.NewHandler(hub, relay.HandlerOptions{
		AllowedOrigin: env.GetOrDefault(env.AllowedOrigin, env.DefaultAllowedOrigin),
		Production:    env.IsProduction(),
		SendBuffer:    env.GetInt(env.RelaySendBuffer, 64),
	}, log).Routes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := ":" + env.GetOrDefault(env.Port, "3001")
	server := relay.NewServer(addr, mux)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("relay shutdown failed", "error", err)
		}
	}()

	log.Info("relay server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("relay server failed", "error", err)
		os.Exit(1)
	}
}
