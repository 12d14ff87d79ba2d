package cli

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/domain/progress"
	"github.com/hawksec/hawk/internal/domain/solution"
	"github.com/hawksec/hawk/internal/services"
)

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Track remediation progress of an alert",
	}

	cmd.AddCommand(newProgressShowCmd())
	cmd.AddCommand(newProgressToggleCmd())
	cmd.AddCommand(newProgressTemplateCmd())
	cmd.AddCommand(newProgressResetCmd())

	return cmd
}

func newProgressShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <alert-id>",
		Short: "Show the solution steps and which are done",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			p, err := s.Progress.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load progress: %w", err)
			}
			return renderProgress(cmd.OutOrStdout(), p)
		}),
	}
}

func newProgressToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <alert-id> <step>",
		Short: "Mark a step done, or not done again",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			step, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step: %s", args[1])
			}
			p, err := s.Progress.ToggleStep(cmd.Context(), args[0], step)
			if err != nil {
				return fmt.Errorf("failed to toggle step: %w", err)
			}
			return renderProgress(cmd.OutOrStdout(), p)
		}),
	}
}

func newProgressTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <alert-id> <template-id>",
		Short: "Choose the solution template of an alert",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			p, err := s.Progress.SelectTemplate(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to select template: %w", err)
			}
			return renderProgress(cmd.OutOrStdout(), p)
		}),
	}
}

func newProgressResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <alert-id>",
		Short: "Forget the progress of an alert",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			if err := s.Progress.Reset(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to reset progress: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Progress of %s reset\n", args[0])
			return nil
		}),
	}
}

func renderProgress(out io.Writer, p *progress.SolutionProgress) error {
	pct := services.ProgressPercentage(p, 0)
	if getOutputFormat() != "table" {
		return printOutput(out, dto.ProgressResponse{SolutionProgress: p, Percentage: pct})
	}

	tpl, ok := solution.Get(p.SelectedTemplate)
	if !ok {
		fmt.Fprintf(out, "Alert %s: %d step(s) done, no template selected\n", p.AlertID, len(p.CompletedSteps))
		fmt.Fprintln(out, "Pick one with 'hawk progress template <alert-id> <template-id>' (see 'hawk templates')")
		return nil
	}

	fmt.Fprintf(out, "%s (%s, about %s)\n", tpl.Name, tpl.ID, tpl.EstimatedTime)
	for _, st := range tpl.Steps {
		mark := " "
		if slices.Contains(p.CompletedSteps, st.ID) {
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] %d. %s\n", mark, st.ID, st.Title)
	}
	fmt.Fprintf(out, "%.0f%% complete\n", pct)
	return nil
}

func newTemplatesCmd() *cobra.Command {
	var category, severity string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the built-in solution templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out []solution.Template
			switch {
			case category != "":
				out = solution.ByCategory(solution.Category(category))
			case severity != "":
				out = solution.BySeverity(severity)
			default:
				out = solution.All()
			}

			w := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				if out == nil {
					out = []solution.Template{}
				}
				return printOutput(w, out)
			}
			t := newTable(w, "ID", "CATEGORY", "SEVERITY", "STEPS", "TIME", "NAME")
			for _, tpl := range out {
				t.row(tpl.ID, string(tpl.Category), formatSeverity(tpl.Severity), strconv.Itoa(len(tpl.Steps)), tpl.EstimatedTime, tpl.Name)
			}
			return t.flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "web, database, system or network")
	cmd.Flags().StringVar(&severity, "severity", "", "template severity")

	return cmd
}
