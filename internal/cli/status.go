package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hawksec/hawk/internal/app"
)

type dashboardStatus struct {
	User          string         `json:"user"`
	Alerts        int            `json:"alerts"`
	BySeverity    map[string]int `json:"bySeverity"`
	Unread        int            `json:"unreadNotifications"`
	AlertsLive    bool           `json:"alertsLive"`
	NotifLive     bool           `json:"notificationsLive"`
	Systems       int            `json:"systems,omitempty"`
	SystemsIssues int            `json:"systemsWithIssues,omitempty"`
	Summary       string         `json:"summary"`
}

func collectStatus(ctx context.Context, s *app.Session) (dashboardStatus, error) {
	sum := s.Overview.Summary(s.Alerts.Alerts())
	st := dashboardStatus{
		User:       s.User.Email,
		Alerts:     s.Alerts.Len(),
		BySeverity: sum.Stats.Map(),
		Unread:     s.Notifications.UnreadCount(),
		AlertsLive: s.Alerts.Live(),
		NotifLive:  s.Notifications.Live(),
		Summary:    sum.Summary,
	}

	ov, err := s.Overview.Systems(ctx)
	if err != nil {
		return st, err
	}
	st.Systems = len(ov.Systems)
	st.SystemsIssues = ov.Counts.Degraded + ov.Counts.Critical
	return st, nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dashboard summary",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			out := cmd.OutOrStdout()
			st, sysErr := collectStatus(cmd.Context(), s)

			if getOutputFormat() != "table" {
				return printOutput(out, st)
			}

			fmt.Fprintln(out, "Hawk Dashboard")
			fmt.Fprintln(out, strings.Repeat("=", 40))
			fmt.Fprintf(out, "  Signed in:     %s\n", st.User)
			fmt.Fprintf(out, "  Alerts:        %d", st.Alerts)
			if n := st.BySeverity["critical"] + st.BySeverity["high"]; n > 0 {
				fmt.Fprintf(out, " (%d high severity)", n)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Notifications: %d unread\n", st.Unread)
			if sysErr != nil {
				fmt.Fprintf(out, "  Systems:       (error: %v)\n", sysErr)
			} else {
				fmt.Fprintf(out, "  Systems:       %d monitored", st.Systems)
				if st.SystemsIssues > 0 {
					fmt.Fprintf(out, " (%d need attention)", st.SystemsIssues)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "  Live updates:  alerts %s, notifications %s\n", yesNo(st.AlertsLive), yesNo(st.NotifLive))
			fmt.Fprintf(out, "\n%s\n", st.Summary)
			return nil
		}),
	}
}
