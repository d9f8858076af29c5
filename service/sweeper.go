// Package service runs the periodic maintenance loops: finalizing expired
// sanctions and resynchronizing votes on open ones.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wikimods/sanctiond/db"
	"github.com/wikimods/sanctiond/sanction"
)

// Sweeper periodically executes sanctions whose voting window has closed.
type Sweeper struct {
	controller *sanction.Controller
	db         *db.Database
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewSweeper(
	ctx context.Context,
	controller *sanction.Controller,
	database *db.Database,
) *Sweeper {
	ctx, cancel := context.WithCancel(ctx)
	return &Sweeper{
		controller,
		database,
		ctx,
		cancel,
	}
}

func (s *Sweeper) Start(pollFrequency time.Duration) {
	ticker := time.NewTicker(pollFrequency)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce finalizes every unhandled expired sanction. Execute is
// idempotent, so retrying a sanction that failed last pass is safe.
func (s *Sweeper) RunOnce() {
	expired, err := s.db.UnhandledExpired(s.ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to list expired sanctions")
		return
	}
	executed := 0
	for i := range expired {
		ok, err := s.controller.Execute(s.ctx, &expired[i])
		if err != nil {
			log.Error().Err(err).Str("sanction", expired[i].ID.String()).Msg("failed to execute sanction")
			continue
		}
		if ok {
			executed++
		}
	}
	log.Info().Int("expired", len(expired)).Int("executed", executed).Msg("sweep finished")
}

func (s *Sweeper) Stop() {
	s.cancel()
}
