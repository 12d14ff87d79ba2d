package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/pkg/validator"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthRegisterCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthWhoamiCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			if email == "" {
				email = promptInput(in, out, "Email: ")
			}
			if password == "" {
				password = promptPassword(out, "Password: ")
			}

			req := dto.LoginRequest{Email: email, Password: password}
			if err := validator.Check(req); err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			gs, err := a.Client().SignIn(cmd.Context(), req.Email, req.Password)
			if err != nil {
				if gateway.IsAuth(err) {
					return fmt.Errorf("login failed: invalid email or password")
				}
				return fmt.Errorf("login failed: %w", err)
			}

			if err := saveSession(gs); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			name := gs.User.FullName()
			if name == "" {
				name = gs.User.Email
			}
			fmt.Fprintf(out, "Logged in as %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")

	return cmd
}

func newAuthRegisterCmd() *cobra.Command {
	var email, password, fullName string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			if email == "" {
				email = promptInput(in, out, "Email: ")
			}
			if fullName == "" {
				fullName = promptInput(in, out, "Full name: ")
			}
			confirm := password
			if password == "" {
				password = promptPassword(out, "Password: ")
				confirm = promptPassword(out, "Confirm password: ")
			}

			req := dto.RegisterRequest{
				Email:           email,
				Password:        password,
				ConfirmPassword: confirm,
				FullName:        fullName,
			}
			if err := validator.Check(req); err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			gs, err := a.Client().SignUp(cmd.Context(), req.Email, req.Password, req.FullName)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			if !gs.Active() {
				fmt.Fprintf(out, "Account created. Confirm the link sent to %s, then run 'hawk auth login'\n", req.Email)
				return nil
			}
			if err := saveSession(gs); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}
			fmt.Fprintf(out, "Account created. Logged in as %s\n", req.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&fullName, "name", "", "full name")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if gs := storedSession(); gs.Active() {
				if a, err := newApp(); err == nil {
					if err := a.Client().WithSession(gs).SignOut(cmd.Context()); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend sign-out failed: %v\n", err)
					}
					a.Close()
				}
			}

			if err := clearSession(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully")
			return nil
		},
	}
}

func newAuthWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: withSession(func(cmd *cobra.Command, args []string, s *app.Session) error {
			out := cmd.OutOrStdout()
			if getOutputFormat() != "table" {
				return printOutput(out, s.User)
			}

			fmt.Fprintf(out, "Email:    %s\n", s.User.Email)
			if s.User.FullName != "" {
				fmt.Fprintf(out, "Name:     %s\n", s.User.FullName)
			}
			if p := s.User.Profile; p != nil {
				if p.Organization != nil {
					fmt.Fprintf(out, "Org:      %s\n", *p.Organization)
				}
				if p.Role != nil {
					fmt.Fprintf(out, "Role:     %s\n", *p.Role)
				}
			}
			fmt.Fprintf(out, "ID:       %s\n", s.User.ID)
			return nil
		}),
	}
}

func promptInput(r *bufio.Reader, out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	input, _ := r.ReadString('\n')
	return strings.TrimSpace(input)
}

func promptPassword(out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return ""
	}
	return string(password)
}
