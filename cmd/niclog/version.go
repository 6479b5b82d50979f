package niclog

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/saadjs/niclog/cmd/niclog.version=...".
var (
	version = "dev"
	commit  = ""
	date    = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version/build metadata",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd)
	},
}

func printVersion(cmd *cobra.Command) {
	v, c := version, commit
	if info, ok := debug.ReadBuildInfo(); ok {
		if v == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && c == "" {
				c = s.Value
			}
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "niclog %s\n", v)
	if c != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", c)
	}
	if date != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "built: %s\n", date)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
