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

func SweepCommand() *cobra.Command {
	var pollFrequency time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Execute sanctions whose voting window has closed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			controller, database, err := buildController(ctx)
			if err != nil {
				return err
			}
			defer database.Close()
			sweeper := service.NewSweeper(ctx, controller, database)
			if pollFrequency == 0 {
				sweeper.RunOnce()
				return nil
			}

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				sweeper.Start(pollFrequency)
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
	cmd.Flags().DurationVar(&pollFrequency, "poll.frequency", 0, "run continuously at this interval; zero sweeps once and exits")
	return cmd
}
