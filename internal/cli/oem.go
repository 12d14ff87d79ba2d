package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/domain/oem"
	"github.com/hawksec/hawk/internal/pkg/format"
)

func newOEMCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oem",
		Short: "Manage OEM advisory sources",
	}

	cmd.AddCommand(newOEMListCmd())
	cmd.AddCommand(newOEMAddCmd())
	cmd.AddCommand(newOEMUpdateCmd())
	cmd.AddCommand(newOEMDeleteCmd())
	cmd.AddCommand(newOEMTestCmd())
	cmd.AddCommand(newOEMSearchCmd())

	return cmd
}

func newOEMListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List OEM sources",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			sources, err := s.OEM.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list OEM sources: %w", err)
			}

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, sources)
			}

			now := time.Now()
			t := newTable(out, "ID", "NAME", "TYPE", "ACTIVE", "URL", "LAST CHECKED")
			for _, src := range sources {
				checked := "never"
				if src.LastChecked != nil {
					checked = format.TimeAgo(*src.LastChecked, now)
				}
				t.row(src.ID, src.Name, src.SystemType, yesNo(src.IsActive), format.Truncate(src.URL, 40), checked)
			}
			return t.flush()
		}),
	}
}

func newOEMAddCmd() *cobra.Command {
	var in oem.CreateInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an OEM source",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			src, err := s.OEM.Add(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("failed to add OEM source: %w", err)
			}
			return printSource(cmd.OutOrStdout(), "Added", src)
		}),
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "vendor name")
	cmd.Flags().StringVar(&in.URL, "url", "", "advisory page URL")
	cmd.Flags().StringVar(&in.SystemType, "type", "", "system type, e.g. firewall")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newOEMUpdateCmd() *cobra.Command {
	var name, url, systemType string
	var active bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an OEM source",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			var in oem.UpdateInput
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = &name
			}
			if flags.Changed("url") {
				in.URL = &url
			}
			if flags.Changed("type") {
				in.SystemType = &systemType
			}
			if flags.Changed("active") {
				in.IsActive = &active
			}

			src, err := s.OEM.Update(cmd.Context(), args[0], in)
			if err != nil {
				return fmt.Errorf("failed to update OEM source: %w", err)
			}
			return printSource(cmd.OutOrStdout(), "Updated", src)
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "vendor name")
	cmd.Flags().StringVar(&url, "url", "", "advisory page URL")
	cmd.Flags().StringVar(&systemType, "type", "", "system type")
	cmd.Flags().BoolVar(&active, "active", true, "monitor this source")

	return cmd
}

func printSource(out io.Writer, verb string, src *oem.Source) error {
	if getOutputFormat() != "table" {
		return printOutput(out, src)
	}
	fmt.Fprintf(out, "%s OEM source %s (%s)\n", verb, src.Name, src.ID)
	return nil
}

func newOEMDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an OEM source",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			if err := s.OEM.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete OEM source: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted OEM source %s\n", args[0])
			return nil
		}),
	}
}

func newOEMTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Scrape an OEM source once to check it works",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			res, err := s.OEM.TestByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to test OEM source: %w", err)
			}

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, res)
			}
			if !res.Success {
				fmt.Fprintf(out, "Test failed: %s\n", res.Error)
				return nil
			}
			fmt.Fprintf(out, "Test succeeded: %d vulnerabilities found\n", res.VulnerabilitiesCount)
			return nil
		}),
	}
}

func newOEMSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <product>",
		Short: "Search OEM advisories for a product",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			vulns, err := s.OEM.Search(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return renderVulnerabilities(cmd.OutOrStdout(), vulns)
		}),
	}
}

func renderVulnerabilities(out io.Writer, vulns []oem.Vulnerability) error {
	if getOutputFormat() != "table" {
		return printOutput(out, vulns)
	}
	t := newTable(out, "CVE", "SEVERITY", "SYSTEM", "DATE", "TITLE")
	for _, v := range vulns {
		t.row(v.CVE, formatSeverity(v.Severity), format.Truncate(v.System, 20), v.Date, format.Truncate(v.Title, 60))
	}
	return t.flush()
}
