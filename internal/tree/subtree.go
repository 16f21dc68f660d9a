package tree

import "maps"

// FromTree copies the part of src spanned by the taxa in allow. Internal nodes
// left with a single child are elided and the child's branch absorbs their
// length. Returns a tree without a root if no taxon survives.
func FromTree(src *Tree, allow map[string]bool) *Tree {
	root, ok := src.Root()
	if !ok {
		return New()
	}
	return CopySubtree(src, root, allow)
}

// CopySubtree copies the subtree of src rooted at i into a new tree, keeping
// only leaves whose taxon is in allow (all leaves if allow is nil) and eliding
// internal nodes left with a single child.
func CopySubtree(src *Tree, i NodeIndex, allow map[string]bool) *Tree {
	c := newCopier(src, allow, true)
	return c.run(i)
}

// AncestralTree copies the part of src spanned by the taxa in allow without
// eliding single child nodes, so every surviving ancestor keeps its place and
// its height.
func AncestralTree(src *Tree, allow map[string]bool) *Tree {
	root, ok := src.Root()
	if !ok {
		return New()
	}
	c := newCopier(src, allow, false)
	return c.run(root)
}

type copier struct {
	src         *Tree
	dst         *Tree
	allow       map[string]bool
	contract    bool
	withLengths bool
}

func newCopier(src *Tree, allow map[string]bool, contract bool) *copier {
	return &copier{
		src:         src,
		dst:         New(),
		allow:       allow,
		contract:    contract,
		withLengths: src.branchLengthsKnown || src.heightsKnown,
	}
}

func (c *copier) run(i NodeIndex) *Tree {
	c.dst.id = c.src.id
	c.dst.annotations = maps.Clone(c.src.annotations)
	if root, _, ok := c.copyNode(i); ok {
		c.dst.root = root
	}
	c.dst.branchLengthsKnown = c.withLengths
	return c.dst
}

// copyNode returns the new index standing in for src node i together with the
// length of the branch above it in the copy.
func (c *copier) copyNode(i NodeIndex) (NodeIndex, float64, bool) {
	length := 0.0
	if c.withLengths && i != c.src.root {
		length, _ = c.src.Length(i)
	}
	n := c.src.node(i)
	if n.firstChild == NoNode {
		leaf, ok := c.dst.MakeExternalNode(n.taxon, c.allow)
		if !ok {
			return NoNode, 0, false
		}
		c.copyAttributes(i, leaf)
		return leaf, length, true
	}
	var children []NodeIndex
	var lengths []float64
	for _, child := range c.src.Children(i) {
		if ci, l, ok := c.copyNode(child); ok {
			children = append(children, ci)
			lengths = append(lengths, l)
		}
	}
	switch {
	case len(children) == 0:
		return NoNode, 0, false
	case len(children) == 1 && c.contract:
		return children[0], lengths[0] + length, true
	}
	parent := c.dst.MakeInternalNode(children)
	for j, ci := range children {
		if c.withLengths {
			c.dst.nodes[ci].length, c.dst.nodes[ci].hasLength = lengths[j], true
		}
	}
	c.copyAttributes(i, parent)
	return parent, length, true
}

func (c *copier) copyAttributes(from, to NodeIndex) {
	n := c.src.node(from)
	if n.hasLabel {
		c.dst.SetLabel(to, n.label)
	}
	if n.hasTaxon && !c.dst.nodes[to].hasTaxon {
		c.dst.SetTaxon(to, n.taxon)
	}
	for key, value := range n.annotations {
		if err := c.dst.AnnotateNode(to, key, value); err != nil {
			panic(err)
		}
	}
}
