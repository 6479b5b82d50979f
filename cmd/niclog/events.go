package niclog

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with entry change events on AMQP",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print entry events from the configured queue until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := runtimeConfig()
		if c.AMQP.URL == "" {
			return fmt.Errorf("amqp.url is not configured")
		}
		consumer, err := events.NewAMQPPublisher(c.AMQP.URL, c.AMQP.Exchange, c.AMQP.Queue)
		if err != nil {
			return err
		}
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = consumer.Consume(ctx, func(e *events.Event) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.OccurredAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.EntryID)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
