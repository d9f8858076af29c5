package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/wikimods/sanctiond/common"
	"github.com/wikimods/sanctiond/config"
	"github.com/wikimods/sanctiond/cred"
	"github.com/wikimods/sanctiond/db"
	"github.com/wikimods/sanctiond/eligibility"
	"github.com/wikimods/sanctiond/enforce"
	"github.com/wikimods/sanctiond/platform"
	"github.com/wikimods/sanctiond/sanction"
	"github.com/wikimods/sanctiond/voting"
)

// buildController wires the composition root: config, stores, platform
// clients, the bot actor and the lifecycle controller.
func buildController(ctx context.Context) (*sanction.Controller, *db.Database, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.New(cfg.DatabaseURL, cfg.VerboseQueries)
	if err != nil {
		return nil, nil, err
	}
	client, err := platform.NewClient(cfg.PlatformURL, cfg.PlatformToken)
	if err != nil {
		return nil, nil, err
	}

	var cache sanction.TallyCache
	if cfg.RedisURL != "" {
		cc, err := cred.New(ctx, cfg.RedisURL, false)
		if err != nil {
			// the cache is optional; the database remains authoritative
			log.Warn().Err(err).Msg("redis unavailable, tally cache disabled")
		} else {
			cache = cc
		}
	}

	actor := common.SystemActor{ID: cfg.BotID, Name: cfg.BotName}
	mode := voting.ModeWikitext
	if cfg.RenderedContentMarkup {
		mode = voting.ModeRendered
	}
	controller := sanction.NewController(
		database,
		client,
		client,
		eligibility.NewChecker(client, cfg.VerificationDays, cfg.MinVerificationEdits),
		enforce.New(client, actor),
		cache,
		actor,
		sanction.Config{
			Board:            cfg.Board,
			VotingPeriodDays: cfg.VotingPeriodDays,
			MaxBlockDays:     cfg.MaxBlockDays,
			ContentMode:      mode,
		},
	)
	return controller, database, nil
}
