package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/db"
	"github.com/example/movie-platform/internal/platform/logging"
	"github.com/example/movie-platform/internal/platform/natsconn"
	"github.com/example/movie-platform/internal/platform/run"
	"github.com/example/movie-platform/internal/remotestore"
	"github.com/example/movie-platform/services/syncworker/internal/worker"
)

func main() {
	log, err := logging.New("")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	pool, err := db.Open(context.Background())
	if err != nil {
		log.Error("db open", zap.Error(err))
		run.Exit(1)
	}
	defer pool.Close()

	nc, err := natsconn.Connect(natsconn.Options{})
	if err != nil {
		log.Error("nats connect", zap.Error(err))
		run.Exit(1)
	}
	defer nc.Close()

	store := remotestore.NewPostgres(pool)
	consumer := &worker.Config{
		NATS:      nc,
		Store:     store,
		Processed: store,
		Log:       logging.Named(log, "consumer"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("syncworker starting")
	if err := consumer.Run(ctx); err != nil {
		log.Error("consumer stopped", zap.Error(err))
		run.Exit(1)
	}
	log.Info("syncworker stopped")
}
