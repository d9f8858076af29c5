package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/wikimods/sanctiond/service"
)

func SyncCommand() *cobra.Command {
	var pollFrequency time.Duration
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull new discussion replies into votes for open sanctions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			controller, database, err := buildController(ctx)
			if err != nil {
				return err
			}
			defer database.Close()
			syncer := service.NewSyncer(ctx, controller, database)
			if pollFrequency == 0 {
				syncer.RunOnce()
				return nil
			}

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				syncer.Start(pollFrequency)
			}()

			// Create a channel to receive OS signals
			sigs := make(chan os.Signal, 1)
			// Create a channel to indicate when to exit
			done := make(chan bool, 1)

			// Notify the sigs channel on SIGINT, SIGTERM, and SIGQUIT
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
			go func() {
				sig := <-sigs
				log.Info().Str("signal", fmt.Sprint(sig)).Msg("received exit")
				// notify all tasks to stop
				cancel()
				done <- true
			}()
			// block until we receive an exit notification
			<-done
			// wait for goroutines to terminate
			wg.Wait()
			return nil
		},
	}
	cmd.Flags().DurationVar(&pollFrequency, "poll.frequency", 0, "run continuously at this interval; zero syncs once and exits")
	return cmd
}
