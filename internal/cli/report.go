package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hawksec/hawk/internal/app"
)

func newReportCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a PDF security report of the current alerts",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			if path == "" {
				path = fmt.Sprintf("security-report-%s.pdf", time.Now().Format(time.DateOnly))
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create report file: %w", err)
			}
			if err := s.Reports.SecurityPDF(s.Alerts.Alerts(), f); err != nil {
				f.Close()
				os.Remove(path)
				return fmt.Errorf("failed to render report: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Report with %d alert(s) written to %s\n", s.Alerts.Len(), path)
			return nil
		}),
	}

	cmd.Flags().StringVar(&path, "out", "", "output file (default security-report-<date>.pdf)")

	return cmd
}
