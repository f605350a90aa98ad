package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/tansive/specstudio/internal/specstudio/workspace"
)

func newReclaimCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reclaim",
		Short: "Delete expired workspace files",
		Long: `Run one reclamation sweep over the configured uploads root. Files older than the
retention threshold are deleted; idle empty workspaces are removed.

Examples:
  # List what would be deleted
  specstudio reclaim --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			m := workspace.NewManager(cfg.Workspace.UploadsDir,
				workspace.WithRetention(cfg.Workspace.GetRetentionOrDefault()))
			var rpt *workspace.Report
			if dryRun {
				rpt = m.PlanReclaim(cmd.Context(), time.Now())
			} else {
				rpt = m.Reclaim(cmd.Context(), time.Now())
			}
			if err := printReport(cmd.OutOrStdout(), rpt, opts.jsonOutput); err != nil {
				return err
			}
			if len(rpt.Errors) > 0 {
				errorLabel.Fprintf(cmd.ErrOrStderr(), "%d file(s) could not be reclaimed\n", len(rpt.Errors))
				return ErrAlreadyHandled
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be deleted without deleting")
	return cmd
}

func printReport(w io.Writer, rpt *workspace.Report, jsonOutput bool) error {
	if jsonOutput {
		printJSON(w, rpt)
		return nil
	}
	out, err := yaml.Marshal(rpt)
	if err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}
	fmt.Fprint(w, string(out))
	if !rpt.DryRun && len(rpt.Errors) == 0 {
		okLabel.Fprintf(w, "reclaimed %d file(s), removed %d workspace(s)\n",
			len(rpt.DeletedFiles), len(rpt.RemovedWorkspaces))
	}
	return nil
}
