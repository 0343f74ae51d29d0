package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"iffy/internal/domain"
)

const (
	retryDelay = 2 * time.Second
	runTimeout = 3 * time.Minute
)

type queue interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

type runner interface {
	Run(ctx context.Context, id string) (*domain.Iffy, error)
}

type stylizeWorker struct {
	queue  queue
	runner runner
	logger zerolog.Logger
	delay  time.Duration
}

// Run drains the queue until ctx is cancelled. Each id is handled to
// completion before the next is taken.
func (w *stylizeWorker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	delay := w.delay
	if delay <= 0 {
		delay = retryDelay
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := w.queue.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error().Err(err).Msg("worker: failed to take job")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		if id == "" {
			continue
		}
		w.handle(ctx, id)
	}
}

func (w *stylizeWorker) handle(ctx context.Context, id string) {
	logger := w.logger.With().Str("iffy_id", id).Logger()
	logger.Info().Msg("worker: picked job")

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	rec, err := w.runner.Run(runCtx, id)
	if err != nil {
		logger.Error().Err(err).Msg("worker: job failed")
		return
	}
	logger.Info().Str("status", string(rec.Status)).Msg("worker: job done")
}
