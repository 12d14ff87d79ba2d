package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/pkg/format"
)

func newNotificationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notification",
		Aliases: []string{"notif"},
		Short:   "Read and follow notifications",
	}

	cmd.AddCommand(newNotifListCmd())
	cmd.AddCommand(newNotifReadCmd())
	cmd.AddCommand(newNotifReadAllCmd())
	cmd.AddCommand(newNotifWatchCmd())
	cmd.AddCommand(newNotifTestCmd())

	return cmd
}

func newNotifListCmd() *cobra.Command {
	var unreadOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent notifications",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			items := s.Notifications.Notifications()
			if unreadOnly {
				unread := items[:0]
				for _, n := range items {
					if !n.IsRead {
						unread = append(unread, n)
					}
				}
				items = unread
			}

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, dto.NotificationsResponse{
					Notifications: items,
					UnreadCount:   s.Notifications.UnreadCount(),
				})
			}

			now := time.Now()
			t := newTable(out, "ID", "READ", "TYPE", "TITLE", "AGE")
			for _, n := range items {
				t.row(n.ID, yesNo(n.IsRead), string(n.Type), format.Truncate(n.Title, 50), format.TimeAgo(n.CreatedAt, now))
			}
			t.flush()
			fmt.Fprintf(out, "\n%d unread\n", s.Notifications.UnreadCount())
			return nil
		}),
	}

	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only show unread notifications")

	return cmd
}

func newNotifReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			if err := s.Notifications.MarkRead(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to mark notification read: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s read, %d unread\n", args[0], s.Notifications.UnreadCount())
			return nil
		}),
	}
}

func newNotifReadAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			if err := s.Notifications.MarkAllRead(cmd.Context()); err != nil {
				return fmt.Errorf("failed to mark notifications read: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All notifications marked read")
			return nil
		}),
	}
}

func newNotifWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print notifications as they arrive",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			out := cmd.OutOrStdout()
			if !s.Notifications.Live() {
				return fmt.Errorf("live notifications are unavailable")
			}

			arrived := make(chan *notification.Notification, 16)
			detach := s.Notifications.OnInsert(func(n *notification.Notification) {
				select {
				case arrived <- n:
				default:
				}
			})
			defer detach()

			fmt.Fprintf(out, "Watching notifications (%d unread). Press Ctrl+C to stop.\n", s.Notifications.UnreadCount())
			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case n := <-arrived:
					printNotification(out, n)
				case _, ok := <-s.Notifications.Changes():
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "  %d unread\n", s.Notifications.UnreadCount())
				}
			}
		}),
	}
}

func printNotification(out io.Writer, n *notification.Notification) {
	fmt.Fprintf(out, "[%s] %s: %s\n", n.CreatedAt.Local().Format(time.TimeOnly), n.Title, format.Truncate(n.Content, 120))
}

func newNotifTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test notification with the saved preferences",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			ctx := cmd.Context()
			prefs, err := s.Settings.Notifications(ctx, s.Account())
			if err != nil {
				return fmt.Errorf("failed to load preferences: %w", err)
			}
			status, err := s.Settings.TestNotification(ctx, s.Account(), prefs)
			if err != nil {
				return fmt.Errorf("failed to send test notification: %w", err)
			}

			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, status)
			}
			fmt.Fprintf(out, "Email sent: %s", yesNo(status.EmailSent))
			if status.EmailError != "" {
				fmt.Fprintf(out, " (%s)", status.EmailError)
			}
			fmt.Fprintf(out, "\nSMS sent:   %s", yesNo(status.SMSSent))
			if status.SMSError != "" {
				fmt.Fprintf(out, " (%s)", status.SMSError)
			}
			fmt.Fprintln(out)
			return nil
		}),
	}
}
