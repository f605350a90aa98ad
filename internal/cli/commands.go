// Package cli implements the specstudio command line: the HTTP server and the offline
// maintenance commands that operate on an uploads root.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tansive/specstudio/internal/specstudio/config"
	"github.com/tansive/specstudio/internal/specstudio/server"
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// rootOptions holds the persistent flags shared by all commands.
type rootOptions struct {
	configFile string
	jsonOutput bool
}

// NewRootCmd returns the specstudio command tree. Without a subcommand the server is started.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)
	rootCmd := &cobra.Command{
		Use:   "specstudio [command] [flags]",
		Short: "Specstudio - build and compile LTL robot specifications",
		Long: `Specstudio serves the spec editor backend. Uploaded region files and specs are kept in
one workspace per browser session and compiled with the configured synthesis toolchain.

Examples:
  # Start the server
  specstudio serve --config /etc/specstudio/specstudio.conf

  # Show what reclamation would delete
  specstudio reclaim --dry-run

  # Print a spec file as YAML
  specstudio inspect uploads/<session>/<session>.spec`,
		RunE: serve.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "", config.DefaultConfigFile, "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newReclaimCmd(opts))
	rootCmd.AddCommand(newInspectCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))
	return rootCmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	rootCmd := NewRootCmd()
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		jsonOutput, _ := rootCmd.PersistentFlags().GetBool("json")
		if jsonOutput {
			printJSON(os.Stdout, map[string]string{
				"error": err.Error(),
			})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func loadConfig(opts *rootOptions) (*config.ConfigParam, error) {
	c, err := config.ParseConfigFile(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config file %s: %w", opts.configFile, err)
	}
	return c, nil
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of specstudio",
		Run: func(cmd *cobra.Command, args []string) {
			if opts.jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"version":     server.Version,
					"api_version": server.ApiVersion,
				})
				return
			}
			cmd.Printf("specstudio %s (api %s)\n", server.Version, server.ApiVersion)
		},
	}
}

func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonData))
}
