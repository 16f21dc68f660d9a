// Package containing the set-based views of a tree used to compare trees:
// clade leafsets, Robinson-Foulds distance, quartets, and lineage counts
package graphs

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/jsdoublel/fertree/internal/tree"
)

var ErrTipNameMismatch = errors.New("tip name mismatch! maybe the trees are not on the same taxa?")

// Assigns each taxon a bit position so leafsets from different trees can be
// compared
type TaxonIndex struct {
	names []string
	index map[string]uint
}

// Makes a taxon index over the distinct taxa, in sorted order
func NewTaxonIndex(taxa []string) *TaxonIndex {
	names := slices.Clone(taxa)
	slices.Sort(names)
	names = slices.Compact(names)
	index := make(map[string]uint, len(names))
	for i, name := range names {
		index[name] = uint(i)
	}
	return &TaxonIndex{names: names, index: index}
}

func (ti *TaxonIndex) Index(taxon string) (uint, bool) {
	i, ok := ti.index[taxon]
	return i, ok
}

func (ti *TaxonIndex) Name(i uint) string {
	return ti.names[i]
}

func (ti *TaxonIndex) Len() int {
	return len(ti.names)
}

// Expanded tree struct containing necessary preprocessed data
type TreeData struct {
	*tree.Tree
	Taxa           *TaxonIndex
	Children       [][]tree.NodeIndex // Children for each node
	Depths         []int              // Number of edges from each node to the root
	NumLeavesBelow []uint64           // Number of leaves below node
	NLeaves        int                // Number of leaves
	leafsets       []*bitset.BitSet   // Leaves under each node
}

// Preprocess tree data and makes TreeData struct. Pass nil for taxa to index
// the tree's own taxa.
func MakeTreeData(tre *tree.Tree, taxa *TaxonIndex) (*TreeData, error) {
	if taxa == nil {
		taxa = NewTaxonIndex(tre.Taxa())
	}
	order := tre.Preorder()
	n := tre.NodeCount()
	td := &TreeData{
		Tree:           tre,
		Taxa:           taxa,
		Children:       make([][]tree.NodeIndex, n),
		Depths:         make([]int, n),
		NumLeavesBelow: make([]uint64, n),
		leafsets:       make([]*bitset.BitSet, n),
	}
	for _, cur := range order {
		td.Children[cur] = tre.Children(cur)
		if p, ok := tre.Parent(cur); ok {
			td.Depths[cur] = td.Depths[p] + 1
		}
	}
	for _, cur := range slices.Backward(order) {
		td.leafsets[cur] = bitset.New(uint(taxa.Len()))
		if tre.IsExternal(cur) {
			taxon, _ := tre.Taxon(cur)
			i, ok := taxa.Index(taxon)
			if !ok {
				return nil, fmt.Errorf("%w, %q is not in the taxon set", ErrTipNameMismatch, taxon)
			}
			td.leafsets[cur].Set(i)
			td.NumLeavesBelow[cur] = 1
			td.NLeaves++
			continue
		}
		for _, c := range td.Children[cur] {
			td.leafsets[cur].InPlaceUnion(td.leafsets[c])
			td.NumLeavesBelow[cur] += td.NumLeavesBelow[c]
		}
	}
	return td, nil
}

func (td *TreeData) Leafset(i tree.NodeIndex) *bitset.BitSet {
	return td.leafsets[i]
}

// Returns the leafsets of the non-trivial clades (more than one leaf, fewer
// than all of them), one per distinct leafset, in preorder
func (td *TreeData) Clades() []*bitset.BitSet {
	var clades []*bitset.BitSet
	seen := make(map[string]bool)
	for _, i := range td.Preorder() {
		ls := td.leafsets[i]
		if c := ls.Count(); c < 2 || c >= uint(td.NLeaves) {
			continue
		}
		if key := ls.String(); !seen[key] {
			seen[key] = true
			clades = append(clades, ls)
		}
	}
	return clades
}

// Returns leafset as string for printing/testing
func (td *TreeData) LeafsetAsString(i tree.NodeIndex) string {
	names := make([]string, 0, td.leafsets[i].Count())
	for j, ok := td.leafsets[i].NextSet(0); ok; j, ok = td.leafsets[i].NextSet(j + 1) {
		names = append(names, td.Taxa.Name(j))
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Robinson-Foulds distance between two rooted trees: the number of clades
// found in exactly one of them. Both trees must have the same taxa.
func RobinsonFoulds(t1, t2 *tree.Tree) (int, error) {
	taxa1, taxa2 := t1.Taxa(), t2.Taxa()
	slices.Sort(taxa1)
	slices.Sort(taxa2)
	if !slices.Equal(taxa1, taxa2) {
		return 0, fmt.Errorf("%w, trees have %d and %d taxa", ErrTipNameMismatch, len(taxa1), len(taxa2))
	}
	taxa := NewTaxonIndex(taxa1)
	td1, err := MakeTreeData(t1, taxa)
	if err != nil {
		return 0, err
	}
	td2, err := MakeTreeData(t2, taxa)
	if err != nil {
		return 0, err
	}
	clades := make(map[string]int)
	for _, c := range td1.Clades() {
		clades[c.String()]++
	}
	for _, c := range td2.Clades() {
		clades[c.String()]--
	}
	dist := 0
	for _, v := range clades {
		if v != 0 {
			dist++
		}
	}
	return dist, nil
}
