package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/pkg/validator"
	"github.com/hawksec/hawk/internal/services"
)

func newScanCmd() *cobra.Command {
	var req services.ScanRequest

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a real-time NVD vulnerability scan",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			if err := validator.Check(req); err != nil {
				return err
			}
			req.UserID = s.User.ID

			result, err := s.Scans.Run(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, result)
			}
			if err := renderVulnerabilities(out, result.Results); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d finding(s)", result.Count)
			if result.Notified > 0 {
				fmt.Fprintf(out, ", %d notification(s) sent", result.Notified)
			}
			if result.UsedMockData {
				fmt.Fprint(out, " (sample data, the NVD feed was unavailable)")
			}
			fmt.Fprintln(out)
			return nil
		}),
	}

	cmd.Flags().StringVar(&req.Severity, "severity", "", "only report findings of this severity: critical, high, medium, low, all")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "maximum number of results (1-100, default from config)")

	return cmd
}
