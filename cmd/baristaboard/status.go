package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/betweencoffee/baristaboard/internal/app"
	"github.com/betweencoffee/baristaboard/internal/config"
	"github.com/betweencoffee/baristaboard/internal/prefs"
	"github.com/betweencoffee/baristaboard/internal/timefmt"
	"github.com/betweencoffee/baristaboard/internal/ui"
)

const statusTimeout = 15 * time.Second

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current order queue once",
		Long: `Load one snapshot of the order queue and print it.

Examples:
  baristaboard status
  baristaboard status --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()

			summary, err := app.FetchSummary(ctx, cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			width, isTerm := terminalWidth(out)
			var theme *ui.Theme
			if isTerm {
				t := ui.GetTheme(prefs.Load(flags.prefsPath).Theme)
				theme = &t
			}
			return writeSummary(out, summary, format, width, theme)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}

// terminalWidth reports the width of out and whether it is a terminal.
func terminalWidth(out io.Writer) (int, bool) {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, true
	}
	return width, true
}

// writeSummary prints s in format. A nil theme prints plain text.
func writeSummary(w io.Writer, s app.Summary, format string, width int, theme *ui.Theme) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return writeText(w, s, width, theme)
	case "json":
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func writeText(w io.Writer, s app.Summary, width int, theme *ui.Theme) error {
	heading := lipgloss.NewStyle()
	muted := lipgloss.NewStyle()
	flag := lipgloss.NewStyle()
	if theme != nil {
		heading = heading.Bold(true).Foreground(lipgloss.Color(theme.Accent))
		muted = muted.Foreground(lipgloss.Color(theme.Muted))
		flag = flag.Foreground(lipgloss.Color(theme.Warning))
	}

	var b strings.Builder
	c := s.Counts
	fmt.Fprintf(&b, "%s  %d waiting, %d preparing, %d ready, %d completed\n",
		heading.Render("Orders"), c.Waiting, c.Preparing, c.Ready, c.Completed)
	at := s.FetchedAt
	if s.ServerTime != nil {
		at = *s.ServerTime
	}
	fmt.Fprintf(&b, "%s\n", muted.Render(s.BaseURL+" at "+timefmt.DateTime(at)))
	if len(s.Defaulted) > 0 {
		fmt.Fprintf(&b, "%s\n", muted.Render("missing from response: "+strings.Join(s.Defaulted, ", ")))
	}

	for _, list := range s.Lists {
		fmt.Fprintf(&b, "\n%s (%d)\n", heading.Render(list.Title), len(list.Orders))
		if len(list.Orders) == 0 {
			fmt.Fprintf(&b, "  %s\n", muted.Render("none"))
			continue
		}
		for _, o := range list.Orders {
			line := fmt.Sprintf("#%-5d %-6s %s  %d items  $%s", o.ID, o.PickupCode, orGuest(o.Name), o.Items, o.Total)
			if width > 4 {
				line = runewidth.Truncate(line, width-4, "…")
			}
			marker := " "
			if o.Expedited {
				marker = flag.Render("!")
			}
			fmt.Fprintf(&b, " %s %s\n", marker, line)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func orGuest(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Guest"
	}
	return name
}
