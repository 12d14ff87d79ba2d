package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/pkg/format"
)

func newOverviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Dashboard overview panels",
	}

	cmd.AddCommand(newOverviewSystemsCmd())
	cmd.AddCommand(newOverviewStatsCmd())
	cmd.AddCommand(newOverviewTrendsCmd())
	cmd.AddCommand(newOverviewSummaryCmd())

	return cmd
}

func newOverviewSystemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "systems",
		Short: "Show monitored systems and their alert counts",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			ov, err := s.Overview.Systems(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load systems: %w", err)
			}

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, ov)
			}

			t := newTable(out, "NAME", "STATUS", "ALERTS", "HIGH+")
			for _, sys := range ov.Systems {
				t.row(sys.Name, formatStatus(string(sys.Status)), strconv.Itoa(sys.AlertsCount), strconv.Itoa(sys.HighSeverityCount))
			}
			t.flush()
			c := ov.Counts
			fmt.Fprintf(out, "\n%d operational, %d degraded, %d critical, %d in maintenance\n",
				c.Operational, c.Degraded, c.Critical, c.Maintenance)
			return nil
		}),
	}
}

func newOverviewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count open alerts per severity",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			stats := s.Overview.Stats(s.Alerts.Alerts())

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, stats)
			}
			t := newTable(out, "SEVERITY", "COUNT")
			t.row(formatSeverity("critical"), strconv.Itoa(stats.Critical))
			t.row(formatSeverity("high"), strconv.Itoa(stats.High))
			t.row(formatSeverity("medium"), strconv.Itoa(stats.Medium))
			t.row(formatSeverity("low"), strconv.Itoa(stats.Low))
			return t.flush()
		}),
	}
}

func newOverviewTrendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Show the vulnerability trend series",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			points, err := s.Overview.Trends(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load trends: %w", err)
			}

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, points)
			}
			t := newTable(out, "DATE", "CRITICAL", "HIGH", "MEDIUM", "LOW", "TOTAL")
			for _, p := range points {
				t.row(format.Date(p.Date),
					strconv.Itoa(p.Critical), strconv.Itoa(p.High),
					strconv.Itoa(p.Medium), strconv.Itoa(p.Low),
					strconv.Itoa(p.Total()))
			}
			return t.flush()
		}),
	}
}

func newOverviewSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Describe the current security posture",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			sum := s.Overview.Summary(s.Alerts.Alerts())

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, sum)
			}
			fmt.Fprintln(out, sum.Summary)
			fmt.Fprintf(out, "%d open: %d critical, %d high, %d medium, %d low\n",
				sum.Total, sum.Stats.Critical, sum.Stats.High, sum.Stats.Medium, sum.Stats.Low)
			return nil
		}),
	}
}
