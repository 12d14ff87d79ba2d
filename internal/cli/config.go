package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive first-time setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			url := ask(reader, out, "Backend URL", viper.GetString("backend.url"))
			if url == "" {
				return fmt.Errorf("a backend URL is required")
			}
			key := ask(reader, out, "Backend anon key", viper.GetString("backend.anon_key"))
			format := ask(reader, out, "Default output format (table/json/yaml)", getOutputFormat())

			viper.Set("backend.url", strings.TrimRight(url, "/"))
			viper.Set("backend.anon_key", key)
			viper.Set("output", format)

			if err := writeConfig(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Configuration saved to %s\n", configFilePath())
			return nil
		},
	}
}

func ask(r *bufio.Reader, out io.Writer, prompt, current string) string {
	if current != "" {
		fmt.Fprintf(out, "%s [%s]: ", prompt, current)
	} else {
		fmt.Fprintf(out, "%s: ", prompt)
	}
	line, _ := r.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return current
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.HasPrefix(args[0], "auth.") {
				return fmt.Errorf("credentials are managed by 'hawk auth'")
			}
			viper.Set(args[0], args[1])
			if err := writeConfig(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			val := viper.Get(args[0])
			switch {
			case val == nil:
				fmt.Fprintf(out, "%s: (not set)\n", args[0])
			case strings.HasPrefix(args[0], "auth"):
				fmt.Fprintf(out, "%s: (credentials stored)\n", args[0])
			default:
				fmt.Fprintf(out, "%s: %v\n", args[0], val)
			}
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			keys := viper.AllKeys()
			sort.Strings(keys)
			for _, key := range keys {
				if strings.HasPrefix(key, "auth.") {
					continue
				}
				fmt.Fprintf(out, "%s: %v\n", key, viper.Get(key))
			}
			if viper.GetString("auth.access_token") != "" {
				fmt.Fprintf(out, "auth: (credentials stored for %s)\n", viper.GetString("auth.email"))
			}
			return nil
		},
	}
}

func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	dir, err := configDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "config.yaml")
}

func writeConfig() error {
	path := configFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Chmod(path, 0600)
}
