package niclog

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/service"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run data integrity checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			report, err := service.RunDoctor(sqldb, doctorFix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries checked: %d\n", report.Entries)
			fmt.Fprintf(out, "Stale totals: %d\n", report.StaleTotals)
			fmt.Fprintf(out, "Unknown product types: %d\n", report.UnknownProducts)
			fmt.Fprintf(out, "Invalid nicotine/amount/price: %d\n", report.InvalidFactors)
			fmt.Fprintf(out, "Settings unreadable: %t\n", report.InvalidSettings)
			if doctorFix {
				fmt.Fprintf(out, "Fixed totals: %d\n", report.FixedTotals)
				fmt.Fprintf(out, "Fixed product types: %d\n", report.FixedProducts)
				fmt.Fprintf(out, "Settings rewritten: %t\n", report.SettingsRewritten)
				// Re-check so the exit status reflects the final state.
				report, err = service.RunDoctor(sqldb, false)
				if err != nil {
					return err
				}
			}
			if !report.Healthy() {
				return fmt.Errorf("doctor found integrity issues")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Attempt safe auto-fixes")
}
