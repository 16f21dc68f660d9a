package treeio

import (
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jsdoublel/fertree/internal/tree"
)

// NewickImporter reads a stream of Newick statements, one tree per ';'.
// Anything before a statement's opening '(' is ignored except [&...] comments,
// which become tree annotations.
type NewickImporter struct {
	s     *scanner
	err   error
	count int
}

func NewNewickImporter(r io.Reader) *NewickImporter {
	return &NewickImporter{s: newScanner(r)}
}

// ReadNewick reads the first tree from r.
func ReadNewick(r io.Reader) (*tree.Tree, error) {
	return NewNewickImporter(r).ReadNextTree()
}

// seek positions the scanner on the next '('.
func (imp *NewickImporter) seek() error {
	if err := imp.s.skipUntil('('); err != nil {
		return err
	}
	imp.s.unread('(')
	return nil
}

func (imp *NewickImporter) HasTree() bool {
	if imp.err != nil {
		return false
	}
	if err := imp.seek(); err != nil {
		if !errors.Is(err, io.EOF) {
			imp.err = err
		}
		return false
	}
	return true
}

func (imp *NewickImporter) ReadNextTree() (*tree.Tree, error) {
	if imp.err != nil {
		return nil, imp.err
	}
	if err := imp.seek(); err != nil {
		return nil, err
	}
	start := time.Now()
	tr := &treeReader{s: imp.s, tree: tree.New()}
	t, err := tr.readTree()
	if err != nil {
		imp.err = err
		return nil, err
	}
	log.Debug("parsed newick tree", "index", imp.count, "tips", t.ExternalNodeCount(), "elapsed", time.Since(start))
	imp.count++
	return t, nil
}

func (imp *NewickImporter) SkipTree() error {
	if imp.err != nil {
		return imp.err
	}
	if err := imp.seek(); err != nil {
		return err
	}
	if err := imp.s.skipStatement(); err != nil {
		imp.err = err
		return err
	}
	imp.count++
	return nil
}

func (imp *NewickImporter) Err() error {
	return imp.err
}
