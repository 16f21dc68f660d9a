// Package tree implements the mutable phylogenetic tree used by fertree. Nodes
// live in a single slice and refer to one another by index; each parent keeps
// an intrusive doubly linked list of its children.
package tree

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jsdoublel/fertree/internal/annotation"
)

// NodeIndex addresses a node within one Tree. Indices are never reused or
// renumbered, even when a node is detached.
type NodeIndex int

const NoNode NodeIndex = -1

var ErrNotChild = errors.New("node is not a child of parent")

type node struct {
	taxon           string
	label           string
	hasTaxon        bool
	hasLabel        bool
	parent          NodeIndex
	firstChild      NodeIndex
	nextSibling     NodeIndex
	previousSibling NodeIndex
	length          float64
	height          float64
	hasLength       bool
	hasHeight       bool
	annotations     map[string]annotation.Value
}

func newNode() node {
	return node{
		parent:          NoNode,
		firstChild:      NoNode,
		nextSibling:     NoNode,
		previousSibling: NoNode,
	}
}

// Tree is a rooted, ordered tree stored as an arena of nodes. At most one of
// heights and branch lengths is authoritative after an edit; the other is
// recomputed the next time it is read (see Height and Length).
type Tree struct {
	nodes              []node
	root               NodeIndex
	externalNodes      []NodeIndex
	internalNodes      []NodeIndex
	taxonIndex         map[string]NodeIndex
	labelIndex         map[string]NodeIndex
	annotationType     map[string]annotation.Kind // kind first seen for each key
	heightsKnown       bool
	branchLengthsKnown bool
	id                 string
	annotations        map[string]annotation.Value // tree wide annotations
}

func New() *Tree {
	return &Tree{
		root:           NoNode,
		taxonIndex:     make(map[string]NodeIndex),
		labelIndex:     make(map[string]NodeIndex),
		annotationType: make(map[string]annotation.Kind),
		annotations:    make(map[string]annotation.Value),
	}
}

func (t *Tree) node(i NodeIndex) *node {
	if i < 0 || int(i) >= len(t.nodes) {
		panic(fmt.Sprintf("node index %d out of range [0, %d)", i, len(t.nodes)))
	}
	return &t.nodes[i]
}

func (t *Tree) addNode(n node) NodeIndex {
	t.nodes = append(t.nodes, n)
	return NodeIndex(len(t.nodes) - 1)
}

// MakeExternalNode creates a leaf for taxon. If allow is non-nil and does not
// contain taxon, no node is created and ok is false. An empty taxon makes an
// unnamed leaf that is neither indexed nor listed by Taxa.
func (t *Tree) MakeExternalNode(taxon string, allow map[string]bool) (i NodeIndex, ok bool) {
	if allow != nil && !allow[taxon] {
		return NoNode, false
	}
	n := newNode()
	if taxon != "" {
		n.taxon, n.hasTaxon = taxon, true
	}
	i = t.addNode(n)
	t.externalNodes = append(t.externalNodes, i)
	if taxon != "" {
		t.taxonIndex[taxon] = i
	}
	return i, true
}

// MakeInternalNode creates a node with children attached in the order given.
// Each child is detached from its current parent first.
func (t *Tree) MakeInternalNode(children []NodeIndex) NodeIndex {
	i := t.addNode(newNode())
	t.internalNodes = append(t.internalNodes, i)
	for _, c := range children {
		t.AddChild(i, c)
	}
	return i
}

// AddChild appends child to the end of parent's child list, removing it from
// any previous parent.
func (t *Tree) AddChild(parent, child NodeIndex) {
	for a := parent; a != NoNode; a = t.node(a).parent {
		if a == child {
			panic(fmt.Sprintf("adding node %d below %d would create a cycle", child, parent))
		}
	}
	c := t.node(child)
	if c.parent != NoNode {
		if err := t.RemoveChild(c.parent, child); err != nil {
			panic(err)
		}
	}
	p := t.node(parent)
	if p.firstChild == NoNode {
		p.firstChild = child
	} else {
		last := p.firstChild
		for t.nodes[last].nextSibling != NoNode {
			last = t.nodes[last].nextSibling
		}
		t.nodes[last].nextSibling = child
		c.previousSibling = last
	}
	c.parent = parent
	t.structureChanged()
}

// RemoveChild detaches child from parent. The detached node keeps its own
// subtree but has no parent or siblings afterwards.
func (t *Tree) RemoveChild(parent, child NodeIndex) error {
	c := t.node(child)
	if c.parent != parent {
		return fmt.Errorf("%w, %d is not below %d", ErrNotChild, child, parent)
	}
	p := t.node(parent)
	if c.previousSibling == NoNode {
		p.firstChild = c.nextSibling
	} else {
		t.nodes[c.previousSibling].nextSibling = c.nextSibling
	}
	if c.nextSibling != NoNode {
		t.nodes[c.nextSibling].previousSibling = c.previousSibling
	}
	c.parent, c.nextSibling, c.previousSibling = NoNode, NoNode, NoNode
	t.structureChanged()
	return nil
}

// Moving a subtree carries its branch lengths with it, so heights derived
// from them are no longer valid. Heights alone survive a move.
func (t *Tree) structureChanged() {
	if t.branchLengthsKnown {
		t.heightsKnown = false
	}
}

func (t *Tree) SetRoot(i NodeIndex) {
	t.node(i)
	t.root = i
	t.structureChanged()
}

func (t *Tree) Root() (NodeIndex, bool) {
	return t.root, t.root != NoNode
}

func (t *Tree) IsRoot(i NodeIndex) bool {
	return t.root != NoNode && t.root == i
}

func (t *Tree) Parent(i NodeIndex) (NodeIndex, bool) {
	p := t.node(i).parent
	return p, p != NoNode
}

func (t *Tree) FirstChild(i NodeIndex) (NodeIndex, bool) {
	c := t.node(i).firstChild
	return c, c != NoNode
}

func (t *Tree) NextSibling(i NodeIndex) (NodeIndex, bool) {
	s := t.node(i).nextSibling
	return s, s != NoNode
}

func (t *Tree) PreviousSibling(i NodeIndex) (NodeIndex, bool) {
	s := t.node(i).previousSibling
	return s, s != NoNode
}

func (t *Tree) Children(i NodeIndex) []NodeIndex {
	children := make([]NodeIndex, 0, 2)
	for c := t.node(i).firstChild; c != NoNode; c = t.nodes[c].nextSibling {
		children = append(children, c)
	}
	return children
}

func (t *Tree) ChildCount(i NodeIndex) int {
	n := 0
	for c := t.node(i).firstChild; c != NoNode; c = t.nodes[c].nextSibling {
		n++
	}
	return n
}

// IsExternal reports whether i currently has no children.
func (t *Tree) IsExternal(i NodeIndex) bool {
	return t.node(i).firstChild == NoNode
}

func (t *Tree) Taxon(i NodeIndex) (string, bool) {
	n := t.node(i)
	return n.taxon, n.hasTaxon
}

func (t *Tree) SetTaxon(i NodeIndex, taxon string) {
	n := t.node(i)
	if n.hasTaxon && t.taxonIndex[n.taxon] == i {
		delete(t.taxonIndex, n.taxon)
	}
	n.taxon, n.hasTaxon = taxon, true
	t.taxonIndex[taxon] = i
}

func (t *Tree) Label(i NodeIndex) (string, bool) {
	n := t.node(i)
	return n.label, n.hasLabel
}

func (t *Tree) SetLabel(i NodeIndex, label string) {
	n := t.node(i)
	if n.hasLabel && t.labelIndex[n.label] == i {
		delete(t.labelIndex, n.label)
	}
	n.label, n.hasLabel = label, true
	t.labelIndex[label] = i
}

func (t *Tree) NodeByTaxon(taxon string) (NodeIndex, bool) {
	i, ok := t.taxonIndex[taxon]
	if !ok {
		return NoNode, false
	}
	return i, true
}

func (t *Tree) NodeByLabel(label string) (NodeIndex, bool) {
	i, ok := t.labelIndex[label]
	if !ok {
		return NoNode, false
	}
	return i, true
}

// NodeCount returns the number of nodes ever created in the tree, including
// any that have been detached from it.
func (t *Tree) NodeCount() int {
	return len(t.nodes)
}

// ExternalNodes returns the leaves in creation order.
func (t *Tree) ExternalNodes() []NodeIndex {
	return slices.Clone(t.externalNodes)
}

func (t *Tree) InternalNodes() []NodeIndex {
	return slices.Clone(t.internalNodes)
}

func (t *Tree) ExternalNodeCount() int {
	return len(t.externalNodes)
}

// Taxa returns the taxa of the leaves reachable from the root, in preorder.
func (t *Tree) Taxa() []string {
	taxa := make([]string, 0, len(t.externalNodes))
	for _, i := range t.Preorder() {
		if n := &t.nodes[i]; n.firstChild == NoNode && n.hasTaxon {
			taxa = append(taxa, n.taxon)
		}
	}
	return taxa
}

func (t *Tree) ID() string {
	return t.id
}

func (t *Tree) SetID(id string) {
	t.id = id
}

// Preorder returns the nodes reachable from the root in preorder. The slice is
// computed up front, so the tree may be edited while it is walked; iterate it
// backwards for a postorder-compatible walk.
func (t *Tree) Preorder() []NodeIndex {
	if t.root == NoNode {
		return nil
	}
	order := make([]NodeIndex, 0, len(t.nodes))
	stack := []NodeIndex{t.root}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, i)
		children := t.Children(i)
		for j := len(children) - 1; j >= 0; j-- {
			stack = append(stack, children[j])
		}
	}
	return order
}

// MRCA returns the most recent common ancestor of a and b, or NoNode if they
// are not in the same tree.
func (t *Tree) MRCA(a, b NodeIndex) NodeIndex {
	ancestors := make(map[NodeIndex]bool)
	for i := a; i != NoNode; i = t.node(i).parent {
		ancestors[i] = true
	}
	for i := b; i != NoNode; i = t.node(i).parent {
		if ancestors[i] {
			return i
		}
	}
	return NoNode
}
