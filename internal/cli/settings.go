package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/domain/settings"
	"github.com/hawksec/hawk/internal/pkg/format"
	"github.com/hawksec/hawk/internal/services"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Notification and auto monitor settings",
	}

	cmd.AddCommand(newSettingsShowCmd())
	cmd.AddCommand(newSettingsNotifyCmd())
	cmd.AddCommand(newSettingsMonitorCmd())
	cmd.AddCommand(newSettingsRulesCmd())

	return cmd
}

type settingsView struct {
	Notifications settings.NotificationPreferences `json:"notifications"`
	Monitoring    services.MonitoringState          `json:"monitoring"`
	Rules         []settings.NotificationRule       `json:"rules"`
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show all settings",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			ctx := cmd.Context()
			var v settingsView
			var err error
			if v.Notifications, err = s.Settings.Notifications(ctx, s.Account()); err != nil {
				return fmt.Errorf("failed to load notification preferences: %w", err)
			}
			if v.Monitoring, err = s.Settings.Monitoring(ctx, s.User.ID); err != nil {
				return fmt.Errorf("failed to load monitoring settings: %w", err)
			}
			if v.Rules, err = s.Settings.Rules(ctx, s.User.ID); err != nil {
				return fmt.Errorf("failed to load notification rules: %w", err)
			}

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, v)
			}
			printPreferences(out, v.Notifications)
			fmt.Fprintln(out)
			printMonitoring(out, v.Monitoring)
			fmt.Fprintln(out)
			renderRules(out, v.Rules)
			return nil
		}),
	}
}

func printPreferences(out io.Writer, p settings.NotificationPreferences) {
	fmt.Fprintln(out, "Notifications")
	fmt.Fprintf(out, "  Email:      %s (%s)\n", yesNo(p.EmailEnabled), p.EmailAddress)
	fmt.Fprintf(out, "  SMS:        %s (%s)\n", yesNo(p.SMSEnabled), p.PhoneNumber)
	fmt.Fprintf(out, "  Level:      %s\n", p.AlertLevel)
	fmt.Fprintf(out, "  Frequency:  %s\n", p.Frequency)
	fmt.Fprintf(out, "  Timeframe:  %s\n", p.Timeframe)
}

func printMonitoring(out io.Writer, m services.MonitoringState) {
	fmt.Fprintln(out, "Auto monitor")
	fmt.Fprintf(out, "  Enabled:    %s\n", yesNo(m.AutoScanEnabled))
	fmt.Fprintf(out, "  Interval:   every %d hours\n", m.ScanInterval)
	fmt.Fprintf(out, "  Critical:   %s\n", yesNo(m.CriticalOnly))
	last, next := "never", "on the next check"
	if m.LastScanTime != nil {
		last = format.Date(*m.LastScanTime) + " " + m.LastScanTime.UTC().Format("15:04")
	}
	if !m.AutoScanEnabled {
		next = "-"
	} else if m.NextScan != nil {
		next = format.Date(*m.NextScan) + " " + m.NextScan.UTC().Format("15:04")
	}
	fmt.Fprintf(out, "  Last scan:  %s\n", last)
	fmt.Fprintf(out, "  Next scan:  %s\n", next)
}

func newSettingsNotifyCmd() *cobra.Command {
	var emailEnabled, smsEnabled bool
	var email, phone, level, frequency, timeframe string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Change notification preferences",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			ctx := cmd.Context()
			prefs, err := s.Settings.Notifications(ctx, s.Account())
			if err != nil {
				return fmt.Errorf("failed to load notification preferences: %w", err)
			}

			flags := cmd.Flags()
			if flags.Changed("email-enabled") {
				prefs.EmailEnabled = emailEnabled
			}
			if flags.Changed("sms-enabled") {
				prefs.SMSEnabled = smsEnabled
			}
			if flags.Changed("email") {
				prefs.EmailAddress = email
			}
			if flags.Changed("phone") {
				prefs.PhoneNumber = phone
			}
			if flags.Changed("level") {
				prefs.AlertLevel = level
			}
			if flags.Changed("frequency") {
				prefs.Frequency = frequency
			}
			if flags.Changed("timeframe") {
				prefs.Timeframe = timeframe
			}

			saved, err := s.Settings.SaveNotifications(ctx, s.Account(), prefs)
			if err != nil {
				return fmt.Errorf("failed to save notification preferences: %w", err)
			}
			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, saved)
			}
			printPreferences(out, saved)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&emailEnabled, "email-enabled", true, "deliver alerts by email")
	cmd.Flags().BoolVar(&smsEnabled, "sms-enabled", false, "deliver alerts by SMS")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number for SMS")
	cmd.Flags().StringVar(&level, "level", "", "minimum alert level: critical, high, medium, low, all")
	cmd.Flags().StringVar(&frequency, "frequency", "", "immediate, hourly, daily or weekly")
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "any, business or custom")

	return cmd
}

func newSettingsMonitorCmd() *cobra.Command {
	var enabled, criticalOnly bool
	var interval int

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Change auto monitor settings",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			ctx := cmd.Context()
			state, err := s.Settings.Monitoring(ctx, s.User.ID)
			if err != nil {
				return fmt.Errorf("failed to load monitoring settings: %w", err)
			}

			m := state.Monitoring
			flags := cmd.Flags()
			if flags.Changed("enabled") {
				m.AutoScanEnabled = enabled
			}
			if flags.Changed("interval") {
				m.ScanInterval = interval
			}
			if flags.Changed("critical-only") {
				m.CriticalOnly = criticalOnly
			}

			saved, err := s.Settings.SaveMonitoring(ctx, s.User.ID, m)
			if err != nil {
				return fmt.Errorf("failed to save monitoring settings: %w", err)
			}
			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, saved)
			}
			printMonitoring(out, saved)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&enabled, "enabled", true, "scan automatically")
	cmd.Flags().IntVar(&interval, "interval", settings.DefaultScanInterval,
		fmt.Sprintf("hours between scans: %s", strings.Trim(fmt.Sprint(settings.ValidIntervals), "[]")))
	cmd.Flags().BoolVar(&criticalOnly, "critical-only", false, "only scan for critical vulnerabilities")

	return cmd
}

func newSettingsRulesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List notification rules, or replace them from a YAML file",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			ctx := cmd.Context()
			var rules []settings.NotificationRule
			var err error

			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read rules file: %w", err)
				}
				var in []settings.NotificationRule
				if err := yaml.Unmarshal(raw, &in); err != nil {
					return fmt.Errorf("failed to parse rules file: %w", err)
				}
				if rules, err = s.Settings.SaveRules(ctx, s.User.ID, in); err != nil {
					return fmt.Errorf("failed to save notification rules: %w", err)
				}
			} else if rules, err = s.Settings.Rules(ctx, s.User.ID); err != nil {
				return fmt.Errorf("failed to load notification rules: %w", err)
			}

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, rules)
			}
			renderRules(out, rules)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file holding the full rule list")

	return cmd
}

func renderRules(out io.Writer, rules []settings.NotificationRule) {
	t := newTable(out, "ID", "NAME", "CONDITION", "ENABLED", "ACTIONS")
	for _, r := range rules {
		cond := r.Condition
		switch r.Condition {
		case "severity":
			cond += "=" + r.Severity
		case "system":
			cond += "=" + r.System
		}
		t.row(r.ID, r.Name, cond, yesNo(r.Enabled), strings.Join(r.Actions, ","))
	}
	t.flush()
}
