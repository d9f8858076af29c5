package main

import (
	"github.com/rs/zerolog/log"
	"github.com/wikimods/sanctiond/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("cmd failed")
	}
}
