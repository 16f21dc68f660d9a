package cli

import (
	"io"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	gr "github.com/jsdoublel/fertree/internal/graphs"
	pr "github.com/jsdoublel/fertree/internal/prep"
	"github.com/jsdoublel/fertree/internal/tree"
)

func newLTTCmd(opts *options) *cobra.Command {
	var plotFile string
	cmd := &cobra.Command{
		Use:   "ltt [trees]",
		Short: "Lineages through time of each tree",
		Long:  `Tabulates the number of lineages alive just after each node height. With --plot the curve of the first tree is drawn; the image format follows the file extension.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			var first []gr.LTTPoint
			err := opts.eachTree(args, func(i int, t *tree.Tree) error {
				points := gr.LineagesThroughTime(t)
				if i == 0 {
					first = points
				} else if i == 1 && plotFile != "" {
					log.Warn("only the first tree is plotted", "plot", plotFile)
				}
				for _, p := range points {
					rows = append(rows, []string{treeName(i, t), formatFloat(p.Time), strconv.Itoa(p.Lineages)})
				}
				return nil
			})
			if err != nil {
				return err
			}
			if plotFile != "" {
				if err := pr.WriteLTTPlot(first, plotFile); err != nil {
					return err
				}
			}
			return opts.withOutput(cmd, func(w io.Writer) error {
				return pr.WriteTable(w, []string{"tree", "time", "lineages"}, rows)
			})
		},
	}
	cmd.Flags().StringVarP(&plotFile, "plot", "p", "", "write a plot of the first tree to this file")
	return cmd
}
