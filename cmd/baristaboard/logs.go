package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/betweencoffee/baristaboard/internal/config"
	"github.com/betweencoffee/baristaboard/internal/logtail"
	"github.com/betweencoffee/baristaboard/internal/prefs"
	"github.com/betweencoffee/baristaboard/internal/timefmt"
	"github.com/betweencoffee/baristaboard/internal/ui"
)

func newLogsCmd(flags *globalFlags) *cobra.Command {
	var (
		lines     int
		follow    bool
		component string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the dashboard log",
		Long: `Print the end of the dashboard's log file.

Examples:
  baristaboard logs
  baristaboard logs -n 50 --component realtime
  baristaboard logs -f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var theme *ui.Theme
			if _, isTerm := terminalWidth(out); isTerm {
				t := ui.GetTheme(prefs.Load(flags.prefsPath).Theme)
				theme = &t
			}
			p := newLogPrinter(out, theme, component)

			tail, offset, err := logtail.Tail(cfg.LogFile, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				p.print(line)
			}
			if !follow {
				if len(tail) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "no log lines in %s\n", cfg.LogFile)
				}
				return nil
			}
			return logtail.Follow(cmd.Context(), cfg.LogFile, offset, p.print)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "number of lines to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new lines")
	cmd.Flags().StringVar(&component, "component", "", "only lines from this component (app, realtime, datamgr, ...)")
	return cmd
}

type logPrinter struct {
	w         io.Writer
	component string
	stamp     lipgloss.Style
	plain     lipgloss.Style
	palette   []string
}

func newLogPrinter(w io.Writer, theme *ui.Theme, component string) *logPrinter {
	p := &logPrinter{
		w:         w,
		component: strings.TrimSuffix(strings.TrimSpace(component), ":"),
		stamp:     lipgloss.NewStyle(),
		plain:     lipgloss.NewStyle(),
	}
	if theme != nil {
		p.stamp = p.stamp.Foreground(lipgloss.Color(theme.Faint))
		p.palette = []string{theme.Accent, theme.Info, theme.Success, theme.Warning, theme.Danger}
	}
	return p
}

func (p *logPrinter) print(line string) {
	e := logtail.Parse(line)
	if p.component != "" && !strings.EqualFold(e.Component, p.component) {
		return
	}
	if e.Time.IsZero() {
		fmt.Fprintln(p.w, p.plain.Render(e.Raw))
		return
	}
	comp := ""
	if e.Component != "" {
		comp = p.componentStyle(e.Component).Render(e.Component+":") + " "
	}
	fmt.Fprintf(p.w, "%s %s%s\n", p.stamp.Render(timefmt.DateTime(e.Time)), comp, e.Message)
}

// componentStyle gives each component a stable color from the palette.
func (p *logPrinter) componentStyle(name string) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(len(p.palette) > 0)
	if len(p.palette) == 0 {
		return style
	}
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return style.Foreground(lipgloss.Color(p.palette[sum%len(p.palette)]))
}
