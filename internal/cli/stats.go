package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	pr "github.com/jsdoublel/fertree/internal/prep"
	"github.com/jsdoublel/fertree/internal/score"
	"github.com/jsdoublel/fertree/internal/tree"
)

func newStatsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [trees]",
		Short: "Summarize each tree: node and tip counts, root height, branch lengths",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				s := score.Stats(t)
				rows = append(rows, []string{
					treeName(i, t),
					strconv.Itoa(s.Nodes),
					strconv.Itoa(s.Tips),
					formatFloat(s.RootHeight),
					formatFloat(s.TotalLength),
					formatFloat(s.MeanLength),
				})
				return nil
			})
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "nodes", "tips", "rootHeight", "sumbl", "meanbl"}, rows)
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "nodes [trees]",
		Short: "Height, branch length and taxon of every node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				for _, n := range score.Nodes(t) {
					rows = append(rows, []string{
						treeName(i, t),
						formatFloat(n.Height),
						formatFloat(n.Length),
						n.Taxon,
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "height", "length", "taxa"}, rows)
			})
		},
	})
	return cmd
}
