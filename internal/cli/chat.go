package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/services"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the security assistant",
		Long: `Ask the security assistant a question. Without a message an interactive
conversation starts; an empty line or "exit" ends it.`,
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				reply, err := s.Chat.Send(ctx, strings.Join(args, " "), nil)
				if err != nil {
					return chatError(err)
				}
				if getOutputFormat() != "table" {
					return printOutput(out, reply)
				}
				fmt.Fprintln(out, reply.Message)
				return nil
			}

			var history []json.RawMessage
			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !in.Scan() {
					return in.Err()
				}
				msg := strings.TrimSpace(in.Text())
				if msg == "" || msg == "exit" {
					return nil
				}

				reply, err := s.Chat.Send(ctx, msg, history)
				if err != nil {
					return chatError(err)
				}
				history = reply.Conversation
				fmt.Fprintf(out, "\n%s\n\n", reply.Message)
			}
		}),
	}
}

func chatError(err error) error {
	if errors.Is(err, services.ErrChatNotConfigured) {
		return fmt.Errorf("the assistant is not configured on the backend yet")
	}
	return fmt.Errorf("chat failed: %w", err)
}
