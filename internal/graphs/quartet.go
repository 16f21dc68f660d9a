package graphs

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/evolbioinfo/gotree/io/newick"
	gotree "github.com/evolbioinfo/gotree/tree"

	"github.com/jsdoublel/fertree/internal/tree"
	"github.com/jsdoublel/fertree/internal/treeio"
)

type Quartet uint64

const (
	taxaShift = 15
	topoShift = 60

	taxaMask = (1 << taxaShift) - 1 // 0x7FFF
	topoMask = (1 << 4) - 1         // 0xF

	Qtopo1 = uint8(0b1100) // three quartet topologies
	Qtopo2 = uint8(0b1010)
	Qtopo3 = uint8(0b0110)
)

var ErrTooManyTaxa = errors.New("too many taxa for quartet encoding")

// Converts a tree to a gotree tree with the same topology and tip names.
// Branch lengths and annotations are not carried over.
func ToGotree(t *tree.Tree) (*gotree.Tree, error) {
	w := treeio.Writer{Topology: true, SkipAnnotations: true}
	nwk, err := w.Newick(t)
	if err != nil {
		return nil, err
	}
	gt, err := newick.NewParser(strings.NewReader(nwk)).Parse()
	if err != nil {
		return nil, fmt.Errorf("gotree could not read %q: %w", t.ID(), err)
	}
	if err := gt.UpdateTipIndex(); err != nil {
		return nil, fmt.Errorf("%w, %s", ErrTipNameMismatch, err.Error())
	}
	return gt, nil
}

func makeQuartet(taxa [4]int16, topology uint8) Quartet {
	var q uint64
	for i, t := range taxa {
		q |= uint64(t) << (taxaShift * i) // we assume positive taxa ids
	}
	q |= uint64(topology) << topoShift
	return Quartet(q)
}

// Generate unit8 representing quartet topology; taxa 0 and 1 are on one side
// of the bipartition on input
func setTopology(taxaIDs *[4]int16) uint8 {
	topo := sortTaxa(taxaIDs) // sort ids so quartet topologies are equal if they are the same
	if topo%2 != 0 {          // normalize quartet (i.e., so that there are three topologies instead of six)
		topo ^= 0b1111
	}
	if topo != Qtopo1 && topo != Qtopo2 && topo != Qtopo3 {
		panic(fmt.Sprintf("quartet didn't define bipartition properly, probably due to a bug: %b", topo))
	}
	return topo
}

// Sorts 4 long int array, carrying the side of each taxon along; returns the
// topology as uint8
func sortTaxa(arr *[4]int16) uint8 {
	topo := uint8(0b0011)
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 4; j++ {
			if arr[i] > arr[j] {
				bi := uint8(topo >> i & 1)
				bj := uint8(topo >> j & 1)
				if bi != bj {
					m := uint8((1 << i) | (1 << j))
					topo ^= m
				}
				arr[i], arr[j] = arr[j], arr[i]
			}
		}
	}
	return topo
}

// Returns the set of quartets displayed by gt, with taxa numbered by their tip
// index in ref. gt is unrooted in place.
func QuartetsFromTree(gt, ref *gotree.Tree) (map[Quartet]bool, error) {
	idMap, err := MapIDsFromRefTree(gt, ref)
	if err != nil {
		return nil, err
	}
	gt.UnRoot() // some quartets are missed if tree is rooted
	quartets := make(map[Quartet]bool)
	gt.Quartets(false, func(q *gotree.Quartet) {
		quartets[QuartetFromTreeQ(q, idMap)] = true
	})
	return quartets, nil
}

// Create quartet from gotree *tree.Quartet
func QuartetFromTreeQ(tq *gotree.Quartet, refMap []int16) Quartet {
	taxaIDs := [...]int16{refMap[tq.T1], refMap[tq.T2], refMap[tq.T3], refMap[tq.T4]}
	return makeQuartet(taxaIDs, setTopology(&taxaIDs))
}

// Maps the tip indices of gt onto those of ref
func MapIDsFromRefTree(gt, ref *gotree.Tree) ([]int16, error) {
	nTips, err := gt.NbTips()
	if err != nil {
		return nil, err
	}
	if nTips > taxaMask {
		return nil, fmt.Errorf("%w, %d taxa", ErrTooManyTaxa, nTips)
	}
	idMap := make([]int16, nTips)
	for _, name := range gt.AllTipNames() {
		refID, err := ref.TipIndex(name)
		if err != nil {
			return nil, fmt.Errorf("%w, %s", ErrTipNameMismatch, err.Error())
		}
		gtID, err := gt.TipIndex(name)
		if err != nil {
			return nil, fmt.Errorf("%w, %s", ErrTipNameMismatch, err.Error())
		}
		idMap[gtID] = int16(refID)
	}
	return idMap, nil
}

// Quartets of a reference tree, computed once and compared against many trees
type QuartetReference struct {
	id       string
	tree     *gotree.Tree
	nTips    int
	quartets map[Quartet]bool
}

func NewQuartetReference(ref *tree.Tree) (*QuartetReference, error) {
	gref, err := ToGotree(ref)
	if err != nil {
		return nil, err
	}
	gt, err := ToGotree(ref)
	if err != nil {
		return nil, err
	}
	quartets, err := QuartetsFromTree(gt, gref)
	if err != nil {
		return nil, err
	}
	return &QuartetReference{
		id:       ref.ID(),
		tree:     gref,
		nTips:    len(gref.AllTipNames()),
		quartets: quartets,
	}, nil
}

// Fraction of the resolved quartets of the reference that t also displays.
// NaN when the reference displays no quartet (fewer than four taxa, or a star
// tree). Safe for concurrent use.
func (qr *QuartetReference) Concordance(t *tree.Tree) (float64, error) {
	gt, err := ToGotree(t)
	if err != nil {
		return 0, err
	}
	if n := len(gt.AllTipNames()); n != qr.nTips {
		return 0, fmt.Errorf("%w, trees have %d and %d taxa", ErrTipNameMismatch, n, qr.nTips)
	}
	treeQuartets, err := QuartetsFromTree(gt, qr.tree)
	if err != nil {
		return 0, err
	}
	if len(qr.quartets) == 0 {
		log.Warn("reference tree displays no quartets", "tree", qr.id)
		return math.NaN(), nil
	}
	shared := 0
	for q := range qr.quartets {
		if treeQuartets[q] {
			shared++
		}
	}
	return float64(shared) / float64(len(qr.quartets)), nil
}

func QuartetConcordance(t, ref *tree.Tree) (float64, error) {
	qr, err := NewQuartetReference(ref)
	if err != nil {
		return 0, err
	}
	return qr.Concordance(t)
}

func (q Quartet) Topology() uint8 {
	return uint8((q >> topoShift) & topoMask)
}

func (q Quartet) Taxon(i int) uint16 {
	return uint16((q >> (taxaShift * i)) & taxaMask)
}

func (q Quartet) Taxa() iter.Seq2[int, uint16] {
	return func(yield func(int, uint16) bool) {
		for i := range 4 {
			if !yield(i, q.Taxon(i)) {
				return
			}
		}
	}
}

// Renders the quartet as "a,b|c,d" using the tip names of ref. Both sides
// are sorted, so equal quartets render the same.
func (q Quartet) String(ref *gotree.Tree) string {
	names := make(map[uint16]string)
	for _, name := range ref.AllTipNames() {
		ti, err := ref.TipIndex(name)
		if err != nil {
			panic(err)
		}
		names[uint16(ti)] = name
	}
	var left, right []string
	for i, taxon := range q.Taxa() {
		if (q.Topology()>>i)%2 == 0 {
			right = append(right, names[taxon])
		} else {
			left = append(left, names[taxon])
		}
	}
	slices.Sort(left)
	slices.Sort(right)
	sides := []string{strings.Join(left, ","), strings.Join(right, ",")}
	slices.Sort(sides)
	return sides[0] + "|" + sides[1]
}

// Resolved quartets displayed by t, rendered with String and sorted
func DisplayedQuartets(t *tree.Tree) ([]string, error) {
	ref, err := ToGotree(t)
	if err != nil {
		return nil, err
	}
	gt, err := ToGotree(t)
	if err != nil {
		return nil, err
	}
	quartets, err := QuartetsFromTree(gt, ref)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(quartets))
	for q := range quartets {
		result = append(result, q.String(ref))
	}
	slices.Sort(result)
	return result, nil
}
