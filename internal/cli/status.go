package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tansive/specstudio/internal/common/httpclient"
	"github.com/tansive/specstudio/internal/specstudio/server"
)

// StatusResponse is what the status command reports about a running server.
type StatusResponse struct {
	ServerURL     string `json:"serverURL"`
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
	Compatible    bool   `json:"compatible"`
	Ready         bool   `json:"ready"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check a running specstudio server",
		Long: `Query the version and readiness endpoints of a running server and report whether
its API is compatible with this build.

Examples:
  specstudio status --server http://localhost:8700`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := httpclient.NewClient(serverURL)
			rsp := &StatusResponse{ServerURL: serverURL}

			body, err := client.Get(cmd.Context(), "/version", map[string]string{"client": server.Version})
			if err != nil {
				return fmt.Errorf("querying version: %w", err)
			}
			var v server.GetVersionRsp
			if err := json.Unmarshal(body, &v); err != nil {
				return fmt.Errorf("decoding version response: %w", err)
			}
			rsp.ServerVersion = v.ServerVersion
			rsp.ApiVersion = v.ApiVersion
			rsp.Compatible = v.Compatible != nil && *v.Compatible

			if _, err := client.Get(cmd.Context(), "/ready", nil); err == nil {
				rsp.Ready = true
			}

			if opts.jsonOutput {
				printJSON(cmd.OutOrStdout(), rsp)
				return nil
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Server:      %s\n", rsp.ServerURL)
			fmt.Fprintf(w, "Version:     %s\n", rsp.ServerVersion)
			fmt.Fprintf(w, "API version: %s\n", rsp.ApiVersion)
			if rsp.Compatible {
				okLabel.Fprintln(w, "Compatible:  yes")
			} else {
				errorLabel.Fprintln(w, "Compatible:  no")
			}
			if rsp.Ready {
				okLabel.Fprintln(w, "Ready:       yes")
			} else {
				errorLabel.Fprintln(w, "Ready:       no")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8700", "Base URL of the server")
	return cmd
}
