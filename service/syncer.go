package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wikimods/sanctiond/db"
	"github.com/wikimods/sanctiond/sanction"
)

// Syncer periodically pulls new discussion replies into votes for every
// open sanction. The same reconciliation also runs opportunistically on
// page views; this loop only bounds how stale a tally can get on a quiet
// wiki.
type Syncer struct {
	controller *sanction.Controller
	db         *db.Database
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewSyncer(
	ctx context.Context,
	controller *sanction.Controller,
	database *db.Database,
) *Syncer {
	ctx, cancel := context.WithCancel(ctx)
	return &Syncer{
		controller,
		database,
		ctx,
		cancel,
	}
}

func (s *Syncer) Start(pollFrequency time.Duration) {
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

func (s *Syncer) RunOnce() {
	open, err := s.db.OpenSanctions(s.ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to list open sanctions")
		return
	}
	updated := 0
	for i := range open {
		changed, err := s.controller.CheckNewVotes(s.ctx, &open[i])
		if err != nil {
			log.Error().Err(err).Str("sanction", open[i].ID.String()).Msg("failed to sync votes")
			continue
		}
		if changed {
			updated++
		}
	}
	log.Info().Int("open", len(open)).Int("updated", updated).Msg("vote sync finished")
}

func (s *Syncer) Stop() {
	s.cancel()
}
