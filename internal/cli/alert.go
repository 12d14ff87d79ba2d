package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/pkg/format"
	"github.com/hawksec/hawk/internal/services"
)

func newAlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alert",
		Aliases: []string{"alerts"},
		Short:   "Review and triage vulnerability alerts",
	}

	cmd.AddCommand(newAlertListCmd())
	cmd.AddCommand(newAlertStatusCmd("ack", "Acknowledge an alert", func(alert.Status) alert.Status { return alert.StatusAcknowledged }))
	cmd.AddCommand(newAlertStatusCmd("resolve", "Resolve an alert", func(alert.Status) alert.Status { return alert.StatusResolved }))
	cmd.AddCommand(newAlertStatusCmd("reopen", "Reopen an alert", alert.Status.Reopen))
	cmd.AddCommand(newAlertWatchCmd())
	cmd.AddCommand(newAlertRecommendCmd())
	cmd.AddCommand(newAlertRiskCmd())

	return cmd
}

type alertFilterFlags struct {
	search     string
	severities []string
	statuses   []string
}

func (f *alertFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "match title, system, CVE or description")
	cmd.Flags().StringSliceVar(&f.severities, "severity", nil, "filter by severity (repeatable or comma separated)")
	cmd.Flags().StringSliceVar(&f.statuses, "status", nil, "filter by status (repeatable or comma separated)")
}

func (f *alertFilterFlags) filter() (alert.Filter, error) {
	out := alert.Filter{Search: f.search}
	for _, v := range f.severities {
		if v == "all" {
			continue
		}
		sev, err := alert.ParseSeverity(v)
		if err != nil {
			return out, err
		}
		out.Severities = append(out.Severities, sev)
	}
	for _, v := range f.statuses {
		if v == "all" {
			continue
		}
		st, err := alert.ParseStatus(v)
		if err != nil {
			return out, err
		}
		out.Statuses = append(out.Statuses, st)
	}
	return out, nil
}

func newAlertListCmd() *cobra.Command {
	var flags alertFilterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			f, err := flags.filter()
			if err != nil {
				return err
			}
			return renderAlerts(cmd.OutOrStdout(), s.Alerts.ApplyFilter(f), time.Now())
		}),
	}
	flags.register(cmd)

	return cmd
}

func renderAlerts(out io.Writer, alerts []*alert.Alert, now time.Time) error {
	if getOutputFormat() != "table" {
		items := make([]dto.AlertDTO, 0, len(alerts))
		for _, a := range alerts {
			items = append(items, dto.NewAlertDTO(a, now))
		}
		return printOutput(out, items)
	}

	t := newTable(out, "ID", "SEVERITY", "STATUS", "SYSTEM", "CVE", "TITLE", "AGE")
	for _, a := range alerts {
		t.row(
			a.ID,
			formatSeverity(string(a.Severity)),
			formatStatus(string(a.Status)),
			format.Truncate(a.System, 20),
			a.CVEID(),
			format.Truncate(a.Title, 50),
			format.TimeAgo(a.Timestamp(), now),
		)
	}
	t.flush()
	fmt.Fprintf(out, "\n%d alert(s)\n", len(alerts))
	return nil
}

func newAlertStatusCmd(use, short string, next func(alert.Status) alert.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			a, ok := s.Alerts.Get(args[0])
			if !ok {
				return fmt.Errorf("alert %s not found", args[0])
			}
			status := next(a.Status)
			if err := s.Alerts.SetStatus(cmd.Context(), a.ID, status); err != nil {
				return fmt.Errorf("failed to update alert: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert %s is now %s\n", a.ID, status)
			return nil
		}),
	}
}

func newAlertWatchCmd() *cobra.Command {
	var flags alertFilterFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "List alerts and redraw on every live change",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			f, err := flags.filter()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !s.Alerts.Live() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: live updates are unavailable, showing a snapshot")
			}

			ctx := cmd.Context()
			for {
				fmt.Fprintf(out, "\n== %s ==\n", time.Now().Format(time.TimeOnly))
				if err := renderAlerts(out, s.Alerts.ApplyFilter(f), time.Now()); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-s.Alerts.Changes():
					if !ok {
						return nil
					}
				}
			}
		}),
	}
	flags.register(cmd)

	return cmd
}

func newAlertRecommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <id>",
		Short: "Show remediation guidance for an alert",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			a, ok := s.Alerts.Get(args[0])
			if !ok {
				return fmt.Errorf("alert %s not found", args[0])
			}
			out := cmd.OutOrStdout()
			now := time.Now()
			recs := services.GenerateRecommendations(a)

			if getOutputFormat() != "table" {
				return printOutput(out, dto.RecommendationsResponse{
					AlertID:         a.ID,
					Recommendations: recs,
				})
			}

			fmt.Fprintf(out, "%s  %s\n", formatSeverity(string(a.Severity)), a.Title)
			if link := services.CVELink(a.CVEID()); link != "" {
				fmt.Fprintf(out, "CVE:      %s\n", link)
			}
			if dl, ok := services.RemediationDeadline(a, now); ok {
				state := fmt.Sprintf("%d day(s) left", dl.DaysRemaining)
				if dl.Overdue {
					state = fmt.Sprintf("overdue by %d day(s)", -dl.DaysRemaining)
				}
				fmt.Fprintf(out, "Deadline: %s (%s, %s)\n", format.Date(dl.DueAt), dl.Timeline, state)
			}
			fmt.Fprintln(out)
			for i, r := range recs {
				fmt.Fprintf(out, "%d. %s\n", i+1, r)
			}
			return nil
		}),
	}
}

func newAlertRiskCmd() *cobra.Command {
	var criticality string
	var exploit bool

	cmd := &cobra.Command{
		Use:   "risk <id>",
		Short: "Score the risk of an alert",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			a, ok := s.Alerts.Get(args[0])
			if !ok {
				return fmt.Errorf("alert %s not found", args[0])
			}
			crit := services.Criticality(criticality)
			switch crit {
			case services.CriticalityLow, services.CriticalityMedium, services.CriticalityHigh, services.CriticalityCritical:
			default:
				return fmt.Errorf("unknown criticality %q", criticality)
			}
			if !cmd.Flags().Changed("exploit") {
				exploit = a.ExploitAvailable()
			}

			score := services.CalculateRiskScore(a.Severity, exploit, crit)
			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, dto.RiskResponse{
					AlertID:          a.ID,
					Score:            score,
					ExploitAvailable: exploit,
					Criticality:      string(crit),
				})
			}
			fmt.Fprintf(out, "Risk score for %s: %s\n", a.ID, strconv.FormatFloat(score, 'f', 1, 64))
			fmt.Fprintf(out, "  severity=%s exploit=%s criticality=%s\n", a.Severity, yesNo(exploit), crit)
			return nil
		}),
	}

	cmd.Flags().StringVar(&criticality, "criticality", string(services.CriticalityMedium), "business criticality: low, medium, high, critical")
	cmd.Flags().BoolVar(&exploit, "exploit", false, "assume a public exploit exists (default from the alert details)")

	return cmd
}
