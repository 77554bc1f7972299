package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "station",
		Short: "Event check-in scanning station",
		Long: `Scans attendee codes with a barcode gun or a camera page and marks attendance
against the ledger service.

Configuration comes from environment variables, optionally layered on a YAML
profile named by CHECKIN_CONFIG. Flags override both.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newCheckCmd())
	return root
}
