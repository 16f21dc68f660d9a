package tree

import "fmt"

// Heights and branch lengths describe the same tree twice. Whichever was last
// edited is authoritative; the other is stale until it is recomputed by
// CalcNodeHeights or CalculateBranchLengths, which Height and Length do on
// demand.

func (t *Tree) HeightsKnown() bool {
	return t.heightsKnown
}

func (t *Tree) BranchLengthsKnown() bool {
	return t.branchLengthsKnown
}

// Height returns the distance from i to the most recent tip. Heights are
// recomputed from branch lengths first if they are stale. Panics if neither
// heights nor branch lengths have ever been set.
func (t *Tree) Height(i NodeIndex) (float64, bool) {
	if !t.heightsKnown {
		if !t.branchLengthsKnown {
			panic("height read before any height or branch length was set")
		}
		t.CalcNodeHeights()
	}
	n := t.node(i)
	return n.height, n.hasHeight
}

// Length returns the length of the branch above i, which is absent at the
// root. Lengths are recomputed from heights first if they are stale. Panics if
// neither heights nor branch lengths have ever been set.
func (t *Tree) Length(i NodeIndex) (float64, bool) {
	if !t.branchLengthsKnown {
		if !t.heightsKnown {
			panic("branch length read before any height or branch length was set")
		}
		t.CalculateBranchLengths()
	}
	n := t.node(i)
	return n.length, n.hasLength
}

// SetLength makes branch lengths authoritative and marks heights stale.
func (t *Tree) SetLength(i NodeIndex, length float64) {
	if !t.branchLengthsKnown && t.heightsKnown {
		t.CalculateBranchLengths()
	}
	n := t.node(i)
	n.length, n.hasLength = length, true
	t.branchLengthsKnown = true
	t.heightsKnown = false
}

// SetHeight makes heights authoritative and marks branch lengths stale.
func (t *Tree) SetHeight(i NodeIndex, height float64) {
	if !t.heightsKnown && t.branchLengthsKnown {
		t.CalcNodeHeights()
	}
	n := t.node(i)
	n.height, n.hasHeight = height, true
	t.heightsKnown = true
	t.branchLengthsKnown = false
}

// CalcNodeHeights derives every height from the branch lengths. The first pass
// finds each node's distance from the root; the second subtracts it from the
// largest root-to-tip distance so the most recent tip sits at height 0.
func (t *Tree) CalcNodeHeights() {
	order := t.Preorder()
	if len(order) == 0 {
		panic("cannot calculate heights of a tree without a root")
	}
	depths := make(map[NodeIndex]float64, len(order))
	maxDepth := 0.0
	for _, i := range order {
		n := &t.nodes[i]
		if i != t.root {
			if !n.hasLength {
				panic(fmt.Sprintf("branch length of node %d was never set", i))
			}
			depths[i] = depths[n.parent] + n.length
		}
		if n.firstChild == NoNode && depths[i] > maxDepth {
			maxDepth = depths[i]
		}
	}
	for _, i := range order {
		t.nodes[i].height, t.nodes[i].hasHeight = maxDepth-depths[i], true
	}
	t.heightsKnown = true
}

// CalculateBranchLengths derives every branch length as the height of the
// parent minus the height of the node. The root has no branch length.
func (t *Tree) CalculateBranchLengths() {
	order := t.Preorder()
	if len(order) == 0 {
		panic("cannot calculate branch lengths of a tree without a root")
	}
	for _, i := range order {
		n := &t.nodes[i]
		if !n.hasHeight {
			panic(fmt.Sprintf("height of node %d was never set", i))
		}
		if i == t.root {
			n.length, n.hasLength = 0, false
			continue
		}
		n.length, n.hasLength = t.nodes[n.parent].height-n.height, true
	}
	t.branchLengthsKnown = true
}

// RootToTip returns the sum of branch lengths from the root down to i.
func (t *Tree) RootToTip(i NodeIndex) float64 {
	d := 0.0
	for ; i != t.root && i != NoNode; i = t.node(i).parent {
		l, _ := t.Length(i)
		d += l
	}
	return d
}
