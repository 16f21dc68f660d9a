package cli

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	pr "github.com/jsdoublel/fertree/internal/prep"
	"github.com/jsdoublel/fertree/internal/tree"
)

func newPruneCmd(opts *options) *cobra.Command {
	var keepSingle bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Restrict trees to a subset of their taxa",
	}
	cmd.PersistentFlags().BoolVar(&keepSingle, "keep-single-children", false,
		"keep internal nodes left with one child instead of merging their branches")
	subtree := func(t *tree.Tree, allow map[string]bool) *tree.Tree {
		if keepSingle {
			return tree.AncestralTree(t, allow)
		}
		return tree.FromTree(t, allow)
	}

	var taxaFile string
	keep := &cobra.Command{
		Use:   "keep [trees]",
		Short: "Keep only the taxa listed in --taxa",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taxa, err := pr.ReadTaxaFile(taxaFile)
			if err != nil {
				return err
			}
			return opts.prune(cmd, args, func(_ int, t *tree.Tree) *tree.Tree {
				return subtree(t, taxa)
			})
		},
	}
	remove := &cobra.Command{
		Use:   "remove [trees]",
		Short: "Remove the taxa listed in --taxa",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taxa, err := pr.ReadTaxaFile(taxaFile)
			if err != nil {
				return err
			}
			return opts.prune(cmd, args, func(_ int, t *tree.Tree) *tree.Tree {
				allow := make(map[string]bool)
				for _, taxon := range t.Taxa() {
					if !taxa[taxon] {
						allow[taxon] = true
					}
				}
				return subtree(t, allow)
			})
		},
	}
	for _, c := range []*cobra.Command{keep, remove} {
		c.Flags().StringVarP(&taxaFile, "taxa", "t", "", "file listing one taxon per line")
		c.MarkFlagRequired("taxa")
	}

	var size int
	var seed uint64
	var sameTaxa bool
	sample := &cobra.Command{
		Use:   "sample [trees]",
		Short: "Keep a random sample of --size taxa",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if size < 1 {
				return fmt.Errorf("sample size must be positive (%d)", size)
			}
			var rng *rand.Rand
			if cmd.Flags().Changed("seed") {
				rng = rand.New(rand.NewPCG(seed, seed))
			} else {
				rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
			}
			var shared map[string]bool
			return opts.prune(cmd, args, func(_ int, t *tree.Tree) *tree.Tree {
				if shared == nil || !sameTaxa {
					shared = sampleTaxa(rng, t.Taxa(), size)
				}
				return subtree(t, shared)
			})
		},
	}
	sample.Flags().IntVarP(&size, "size", "s", 0, "number of taxa to keep")
	sample.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	sample.Flags().BoolVar(&sameTaxa, "same", false, "apply the first tree's sample to every tree")
	sample.MarkFlagRequired("size")

	cmd.AddCommand(keep, remove, sample)
	return cmd
}

// sampleTaxa draws size distinct taxa; all of them when there are no more
// than size.
func sampleTaxa(rng *rand.Rand, taxa []string, size int) map[string]bool {
	rng.Shuffle(len(taxa), func(i, j int) { taxa[i], taxa[j] = taxa[j], taxa[i] })
	taxa = taxa[:min(size, len(taxa))]
	allow := make(map[string]bool, len(taxa))
	for _, taxon := range taxa {
		allow[taxon] = true
	}
	return allow
}

// prune writes the subtree fn picks for each tree; trees left without any
// taxon are skipped with a warning.
func (opts *options) prune(cmd *cobra.Command, args []string, fn func(i int, t *tree.Tree) *tree.Tree) error {
	return opts.withOutput(cmd, func(w io.Writer) error {
		return opts.eachTree(args, func(i int, t *tree.Tree) error {
			pruned := fn(i, t)
			if _, ok := pruned.Root(); !ok {
				log.Warn("no taxa left after pruning; tree skipped", "tree", treeName(i, t))
				return nil
			}
			return opts.writer.WriteNewick(w, pruned)
		})
	})
}
