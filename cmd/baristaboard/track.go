package main

import (
	"github.com/spf13/cobra"

	"github.com/betweencoffee/baristaboard/internal/app"
	"github.com/betweencoffee/baristaboard/internal/config"
)

func newTrackCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "track ORDER_ID",
		Short: "Follow one order on the customer channel",
		Long: `Follow one order the way the customer's order page does: status changes,
queue position, payment and the ready notification are printed as they arrive.

Examples:
  baristaboard track 1042`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			return app.Track(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
		},
	}
}
