package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tansive/specstudio/internal/specstudio/descriptor"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE.spec [FILE.spec...]",
		Short: "Print spec files as YAML",
		Long: `Decode one or more spec files and print the project descriptors. Several files are
written as a multi-document YAML stream. The region reference is printed as recorded and
is not resolved.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]*descriptor.ProjectDescriptor, 0, len(args))
			for _, p := range args {
				d, err := descriptor.ReadFile(p)
				if err != nil {
					return fmt.Errorf("reading %s: %w", p, err)
				}
				docs = append(docs, d)
			}
			if opts.jsonOutput {
				if len(docs) == 1 {
					printJSON(cmd.OutOrStdout(), docs[0])
				} else {
					printJSON(cmd.OutOrStdout(), docs)
				}
				return nil
			}
			return writeYAMLStream(cmd.OutOrStdout(), docs)
		},
	}
}

func writeYAMLStream(w io.Writer, docs []*descriptor.ProjectDescriptor) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encoding descriptor: %w", err)
		}
	}
	return enc.Close()
}
