package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "selfheal",
		Short:         "Metric anomaly scoring, log triage and scripted remediation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file (default $SELFHEAL_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug|info|warn|error)")

	cmd.AddCommand(
		newTrainCmd(opts),
		newServeCmd(opts),
		newLambdaCmd(opts),
		newAuditCmd(opts),
	)
	return cmd
}
