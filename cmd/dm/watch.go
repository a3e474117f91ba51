package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dogmatch/internal/app"
	"github.com/alfredjeanlab/dogmatch/internal/events"
	"github.com/alfredjeanlab/dogmatch/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:               "watch",
	Short:             "Print favorites and session events as they happen",
	GroupID:           "system",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipApp,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATSURL == "" {
			return errors.New("no event bus configured (set DOGMATCH_NATS_URL or add --nats to your remote)")
		}
		count, _ := cmd.Flags().GetInt("count")
		logger := app.NewLogger(cfg.Level())

		sub, err := events.NewNATSSubscriber(cfg.NATSURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(events.TopicAll)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()
		fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderMuted("Watching dogmatch events on "+cfg.NATSURL))

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		for seen := 0; count == 0 || seen < count; seen++ {
			select {
			case <-ctx.Done():
				return nil
			case m, ok := <-ch:
				if !ok {
					return nil
				}
				if jsonOutput {
					fmt.Fprintf(out, "{\"subject\":%q,\"data\":%s}\n", m.Subject, m.Data)
					continue
				}
				fmt.Fprintf(out, "%s  %s\n", ui.RenderMuted(time.Now().Format("15:04:05")), events.Describe(m))
			}
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().Int("count", 0, "exit after this many events (0 = run until interrupted)")
}
