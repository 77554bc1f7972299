package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"checkin/internal/config"
	"checkin/internal/logging"
	"checkin/internal/resolver"
)

func newCheckCmd() *cobra.Command {
	var flags stationFlags
	cmd := &cobra.Command{
		Use:   "check <payload>",
		Short: "Resolve one scanned payload against the ledger",
		Long: `Runs the same status check and mark a live scan would, then prints the
outcome. Useful for smoke testing a ledger deployment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			flags.apply(&cfg)
			if _, err := logging.Configure("station", logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
				return err
			}
			out := runCheck(cmd.Context(), cfg, args[0])
			fmt.Fprintln(cmd.OutOrStdout(), formatOutcome(out))
			if out.Kind == resolver.KindTransportError {
				return fmt.Errorf("ledger unreachable: %s", out.Detail)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func runCheck(ctx context.Context, cfg config.App, payload string) resolver.Outcome {
	_, res := newResolver(cfg)
	return res.Resolve(ctx, payload)
}

func formatOutcome(out resolver.Outcome) string {
	line := fmt.Sprintf("%s: %s", out.Kind, out.Message())
	if out.User != nil {
		line += " - " + out.User.Name
		if out.User.Organization != "" {
			line += " (" + out.User.Organization + ")"
		}
	}
	if !out.MarkedAt.IsZero() {
		line += " at " + out.MarkedAt.Format("2006-01-02 15:04:05")
	}
	return line
}
