package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/betweencoffee/baristaboard/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type globalFlags struct {
	configPath string
	prefsPath  string
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "baristaboard: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "baristaboard",
		Short: "Live order dashboard for coffee shop staff",
		Long: `baristaboard shows the shop's order queue in the terminal.

Orders arrive over the realtime channel and periodic refreshes, sorted into
waiting, preparing, ready and completed lists. Staff advance orders with a
key press; the backend stays the source of truth.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: flags.configPath,
				PrefsPath:  flags.prefsPath,
			})
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/baristaboard/config.toml)")
	root.PersistentFlags().StringVar(&flags.prefsPath, "prefs", "", "UI preferences file (default ~/.config/baristaboard/prefs.toml)")

	root.AddCommand(
		newStatusCmd(flags),
		newTrackCmd(flags),
		newLogsCmd(flags),
		newVersionCmd(),
	)
	return root
}
