package score

import (
	"errors"
	"fmt"

	"github.com/jsdoublel/fertree/internal/annotation"
	"github.com/jsdoublel/fertree/internal/tree"
)

var ErrMissingAnnotation = errors.New("node is missing annotation")

// Root-to-tip distance of one tip
type TipDivergence struct {
	Taxon      string
	Divergence float64
}

// Root-to-tip distance of every tip, in the order the tips were created
func Divergence(t *tree.Tree) []TipDivergence {
	if _, ok := t.Root(); !ok {
		return nil
	}
	tips := t.ExternalNodes()
	result := make([]TipDivergence, 0, len(tips))
	for _, tip := range tips {
		taxon, _ := t.Taxon(tip)
		result = append(result, TipDivergence{Taxon: taxon, Divergence: t.RootToTip(tip)})
	}
	return result
}

// Share of the divergence of Taxon1 that is also on the path to Taxon2
type SharedDivergence struct {
	Taxon1 string
	Taxon2 string
	Shared float64
}

// Shared divergence for every ordered pair of distinct tips:
// (h(root) - h(mrca)) / (h(root) - h(tip1)). NaN when tip1 sits at the root
// height.
func CovEvol(t *tree.Tree) []SharedDivergence {
	root, ok := t.Root()
	if !ok {
		return nil
	}
	rootHeight, _ := t.Height(root)
	tips := t.ExternalNodes()
	result := make([]SharedDivergence, 0, len(tips)*(len(tips)-1))
	for _, tip1 := range tips {
		taxon1, _ := t.Taxon(tip1)
		h1, _ := t.Height(tip1)
		for _, tip2 := range tips {
			if tip1 == tip2 {
				continue
			}
			taxon2, _ := t.Taxon(tip2)
			mrcaHeight, _ := t.Height(t.MRCA(tip1, tip2))
			result = append(result, SharedDivergence{
				Taxon1: taxon1,
				Taxon2: taxon2,
				Shared: (rootHeight - mrcaHeight) / (rootHeight - h1),
			})
		}
	}
	return result
}

// Change of an annotation value along a branch; Height is that of the child
type Transition struct {
	Source      annotation.Value
	Destination annotation.Value
	Height      float64
}

// Branches whose child is annotated with a different key value than its
// parent, in preorder. Every node must carry the key.
func Transitions(t *tree.Tree, key string) ([]Transition, error) {
	var transitions []Transition
	for _, i := range t.Preorder() {
		value, ok := t.Annotation(i, key)
		if !ok {
			return nil, missingAnnotation(t, i, key)
		}
		for _, c := range t.Children(i) {
			childValue, ok := t.Annotation(c, key)
			if !ok {
				return nil, missingAnnotation(t, c, key)
			}
			if childValue.String() == value.String() {
				continue
			}
			h, _ := t.Height(c)
			transitions = append(transitions, Transition{Source: value, Destination: childValue, Height: h})
		}
	}
	return transitions, nil
}

func missingAnnotation(t *tree.Tree, i tree.NodeIndex, key string) error {
	if taxon, ok := t.Taxon(i); ok {
		return fmt.Errorf("%w %q (tip %s)", ErrMissingAnnotation, key, taxon)
	}
	return fmt.Errorf("%w %q (node %d)", ErrMissingAnnotation, key, i)
}
