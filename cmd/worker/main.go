package main

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/lacomanda/pos-terminal/internal/config"
	"github.com/lacomanda/pos-terminal/internal/obs"
	"github.com/lacomanda/pos-terminal/internal/printing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := obs.NewLogger("json", "info")
		boot.Fatal().Err(err).Msg("config load failed")
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid REDIS_URL")
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{cfg.PrintQueueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("print task failed")
		}),
	})

	mux := asynq.NewServeMux()
	printing.Handler{Logger: logger}.Register(mux)

	logger.Info().Str("queue", cfg.PrintQueueName).Msg("print worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("print worker stopped")
	}
}
