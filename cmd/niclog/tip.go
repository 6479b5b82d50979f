package niclog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/provider/quotable"
)

var tipOffline bool

var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Show a short motivational tip",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := quotable.Fallback()
		if !tipOffline {
			c := runtimeConfig()
			client := &quotable.Client{BaseURL: c.Tips.BaseURL, HTTPClient: &http.Client{Timeout: c.Tips.Timeout}}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.Tips.Timeout+time.Second)
			defer cancel()
			var online bool
			q, online = client.RandomOrFallback(ctx)
			if !online {
				logger.Debug("tip service unreachable, using bundled tip")
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\"%s\"\n  - %s\n", q.Content, q.Author)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tipCmd)
	tipCmd.Flags().BoolVar(&tipOffline, "offline", false, "Use a bundled tip without calling the network")
}
