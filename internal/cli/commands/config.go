package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shuportal/portal/internal/cli/userconfig"
)

// NewConfigCmd creates the config command group
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI settings",
	}

	var output string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the settings in force",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(os.Stdout, output)
		},
	}
	show.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json, yaml")

	setServer := &cobra.Command{
		Use:   "set-server <url>",
		Short: "Set the auth server URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := userconfig.SetServer(args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Server set to %s\n", args[0])
			return nil
		},
	}

	setStore := &cobra.Command{
		Use:       "set-store <keyring|file>",
		Short:     "Choose where the session is kept",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"keyring", "file"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := userconfig.SetStore(args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Session store set to %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(show, setServer, setStore)
	return cmd
}

func runConfigShow(out io.Writer, output string) error {
	if err := validateOutput(output); err != nil {
		return err
	}

	cfg, err := userconfig.Effective()
	if err != nil {
		return err
	}
	if Globals.Server != "" {
		cfg.ServerURL = Globals.Server
	}
	if Globals.Store != "" {
		cfg.Store = Globals.Store
	}

	path, err := userconfig.GetConfigPath()
	if err != nil {
		return err
	}

	return writeOutput(out, output, cfg, func(w io.Writer) {
		fmt.Fprintf(w, "Config file: %s\n", path)
		fmt.Fprintf(w, "Server:      %s\n", cfg.ServerURL)
		fmt.Fprintf(w, "Store:       %s\n", cfg.Store)
	})
}
