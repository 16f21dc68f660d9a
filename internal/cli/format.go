package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/jsdoublel/fertree/internal/tree"
)

func newFormatCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Rewrite trees in another format",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "newick [trees]",
		Short: "Write each tree as a Newick statement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withOutput(cmd, func(w io.Writer) error {
				return opts.eachTree(args, func(_ int, t *tree.Tree) error {
					return opts.writer.WriteNewick(w, t)
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "nexus [trees]",
		Short: "Write all trees as one Nexus file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trees, err := opts.readTrees(args)
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return opts.writer.WriteNexus(w, trees)
			})
		},
	})
	return cmd
}
