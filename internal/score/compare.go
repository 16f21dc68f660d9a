// Package implementing per-tree measures: summary statistics, root-to-tip
// distances, annotation transitions, and comparisons against a reference tree
package score

import (
	"context"
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	gr "github.com/jsdoublel/fertree/internal/graphs"
	"github.com/jsdoublel/fertree/internal/tree"
)

// Comparison of one tree against the reference
type Comparison struct {
	Index              int     // position of the tree in its file
	ID                 string  // tree id, empty for Newick input
	RF                 int     // Robinson-Foulds distance
	QuartetConcordance float64 // fraction of reference quartets displayed
}

// Compares every tree against ref using at most nprocs goroutines. Results are
// in input order; the first error stops the remaining comparisons.
func CompareTrees(ref *tree.Tree, trees []*tree.Tree, nprocs int) ([]Comparison, error) {
	qRef, err := gr.NewQuartetReference(ref)
	if err != nil {
		return nil, fmt.Errorf("reference tree: %w", err)
	}
	if nprocs < 1 {
		nprocs = runtime.GOMAXPROCS(0)
	}
	results := make([]Comparison, len(trees))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(nprocs)
	for i, t := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rf, err := gr.RobinsonFoulds(t, ref)
			if err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
			qc, err := qRef.Concordance(t)
			if err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
			results[i] = Comparison{Index: i, ID: t.ID(), RF: rf, QuartetConcordance: qc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debug("compared trees to reference", "trees", len(trees), "procs", nprocs)
	return results, nil
}
