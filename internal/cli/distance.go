package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	pr "github.com/jsdoublel/fertree/internal/prep"
	"github.com/jsdoublel/fertree/internal/score"
	"github.com/jsdoublel/fertree/internal/tree"
)

func newDistanceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Distances within trees and between trees",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "divergence [trees]",
		Short: "Root-to-tip distance of every tip",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				for _, d := range score.Divergence(t) {
					rows = append(rows, []string{treeName(i, t), d.Taxon, formatFloat(d.Divergence)})
				}
				return nil
			})
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "taxa", "divergence"}, rows)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "covevol [trees]",
		Short: "Share of each tip's divergence common to every other tip",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				for _, d := range score.CovEvol(t) {
					rows = append(rows, []string{treeName(i, t), d.Taxon1, d.Taxon2, formatFloat(d.Shared)})
				}
				return nil
			})
			if err != nil {
				return err
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "taxa1", "taxa2", "shared"}, rows)
			})
		},
	})

	var refFile string
	compare := &cobra.Command{
		Use:   "compare [trees]",
		Short: "Robinson-Foulds distance and quartet concordance against --reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := pr.ReadTreeFile(refFile, opts.format)
			if err != nil {
				return err
			}
			trees, err := opts.readTrees(args)
			if err != nil {
				return err
			}
			results, err := score.CompareTrees(ref, trees, opts.nprocs)
			if err != nil {
				return err
			}
			rows := make([][]string, len(results))
			for i, c := range results {
				rows[i] = []string{
					treeName(c.Index, trees[c.Index]),
					strconv.Itoa(c.RF),
					strconv.FormatFloat(c.QuartetConcordance, 'f', 4, 64),
				}
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "rf", "quartetConcordance"}, rows)
			})
		},
	}
	compare.Flags().StringVarP(&refFile, "reference", "r", "", "reference tree file holding one tree")
	compare.MarkFlagRequired("reference")
	cmd.AddCommand(compare)
	return cmd
}
