package score

import (
	"math"

	"github.com/jsdoublel/fertree/internal/tree"
)

// Summary of one tree
type TreeStats struct {
	Nodes       int
	Tips        int
	RootHeight  float64
	TotalLength float64 // sum of branch lengths
	MeanLength  float64 // mean over the branches, the root has none
}

func Stats(t *tree.Tree) TreeStats {
	stats := TreeStats{Nodes: len(t.Preorder()), Tips: t.ExternalNodeCount()}
	root, ok := t.Root()
	if !ok {
		return stats
	}
	for _, i := range t.Preorder() {
		if l, ok := t.Length(i); ok && i != root {
			stats.TotalLength += l
		}
	}
	if stats.Nodes > 1 {
		stats.MeanLength = stats.TotalLength / float64(stats.Nodes-1)
	}
	stats.RootHeight, _ = t.Height(root)
	return stats
}

// Height, branch length and taxon of one node. Length is NaN at the root.
type NodeStats struct {
	Node   tree.NodeIndex
	Height float64
	Length float64
	Taxon  string
}

// Per node statistics in preorder
func Nodes(t *tree.Tree) []NodeStats {
	order := t.Preorder()
	rows := make([]NodeStats, 0, len(order))
	for _, i := range order {
		row := NodeStats{Node: i, Length: math.NaN()}
		row.Height, _ = t.Height(i)
		if !t.IsRoot(i) {
			row.Length, _ = t.Length(i)
		}
		row.Taxon, _ = t.Taxon(i)
		rows = append(rows, row)
	}
	return rows
}
