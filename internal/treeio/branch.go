package treeio

import (
	"fmt"

	"github.com/jsdoublel/fertree/internal/tree"
)

const (
	labelDelims  = ",:();"
	lengthDelims = ",():;"
)

// treeReader builds one tree from the branch grammar shared by Newick and
// Nexus:
//
//	branch   := (internal | external) (':' length)?
//	internal := '(' branch (',' branch)* ')' label?
//	external := label
type treeReader struct {
	s         *scanner
	tree      *tree.Tree
	translate func(label string) (string, error) // nil keeps labels as read
}

// readTree reads a whole statement starting at '(' and ending at ';'. Any
// annotations pending before the '(' belong to the tree rather than a node.
func (tr *treeReader) readTree() (*tree.Tree, error) {
	for key, value := range tr.s.takePending() {
		tr.tree.AnnotateTree(key, value)
	}
	root, err := tr.readInternalNode()
	if err != nil {
		return nil, err
	}
	tr.tree.SetRoot(root)
	if tr.s.lastDelim == ':' {
		// a root branch length is allowed but has no meaning in a rooted tree
		if _, err := tr.s.readFloat(lengthDelims); err != nil {
			return nil, err
		}
		if err := tr.annotate(root); err != nil {
			return nil, err
		}
	}
	switch tr.s.lastDelim {
	case ';':
		return tr.tree, nil
	case ')':
		return nil, tr.s.errorf("unbalanced ')' in tree")
	case 0:
		return nil, tr.s.errorf("missing ';' at end of tree")
	default:
		return nil, tr.s.errorf("expected ';' at end of tree but found %q", tr.s.lastDelim)
	}
}

func (tr *treeReader) readInternalNode() (tree.NodeIndex, error) {
	if ch, err := tr.s.readByte(); err != nil {
		return tree.NoNode, tr.s.eof(err)
	} else if ch != '(' {
		return tree.NoNode, tr.s.errorf("expected '(' but found %q", ch)
	}
	var children []tree.NodeIndex
	for {
		child, err := tr.readBranch()
		if err != nil {
			return tree.NoNode, err
		}
		children = append(children, child)
		if tr.s.lastDelim != ',' {
			break
		}
	}
	if tr.s.lastDelim != ')' {
		return tree.NoNode, tr.s.errorf("missing closing ')' in tree")
	}
	label, err := tr.s.readToken(labelDelims)
	if err != nil {
		return tree.NoNode, tr.s.eof(err)
	}
	node := tr.tree.MakeInternalNode(children)
	if label != "" {
		tr.tree.SetLabel(node, label)
	}
	return node, tr.annotate(node)
}

func (tr *treeReader) readExternalNode() (tree.NodeIndex, error) {
	label, err := tr.s.readToken(labelDelims)
	if err != nil {
		return tree.NoNode, tr.s.eof(err)
	}
	if tr.translate != nil {
		if label, err = tr.translate(label); err != nil {
			return tree.NoNode, err
		}
	}
	node, _ := tr.tree.MakeExternalNode(label, nil)
	return node, tr.annotate(node)
}

// readBranch reads a node and the length of the branch above it. A missing
// length is read as 0.
func (tr *treeReader) readBranch() (tree.NodeIndex, error) {
	ch, err := tr.s.nextByte()
	if err != nil {
		return tree.NoNode, tr.s.eof(err)
	}
	var node tree.NodeIndex
	if ch == '(' {
		node, err = tr.readInternalNode()
	} else {
		node, err = tr.readExternalNode()
	}
	if err != nil {
		return tree.NoNode, err
	}
	length := 0.0
	if tr.s.lastDelim == ':' {
		if length, err = tr.s.readFloat(lengthDelims); err != nil {
			return tree.NoNode, err
		}
		if err := tr.annotate(node); err != nil {
			return tree.NoNode, err
		}
	}
	tr.tree.SetLength(node, length)
	return node, nil
}

// annotate moves the pending annotations onto node.
func (tr *treeReader) annotate(node tree.NodeIndex) error {
	pending := tr.s.takePending()
	if len(pending) == 0 {
		return nil
	}
	if err := tr.tree.AnnotateNodeAll(node, pending); err != nil {
		return fmt.Errorf("%w (line %d)", err, tr.s.line)
	}
	return nil
}
