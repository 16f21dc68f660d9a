// Package treeio reads and writes trees in the Newick and Nexus formats. Both
// importers stream: each call reads one statement from the underlying reader.
package treeio

import (
	"fmt"
	"io"
	"slices"

	"github.com/jsdoublel/fertree/internal/tree"
)

// TreeImporter yields trees one at a time. HasTree reports whether another
// tree follows; once it returns false, Err tells a clean end of input (nil)
// from a read error. ReadNextTree returns io.EOF when no tree is left, and
// SkipTree passes over a tree without building it.
type TreeImporter interface {
	HasTree() bool
	ReadNextTree() (*tree.Tree, error)
	SkipTree() error
	Err() error
}

var (
	_ TreeImporter = (*NewickImporter)(nil)
	_ TreeImporter = (*NexusImporter)(nil)
)

type Format int

const (
	Newick Format = iota
	Nexus
)

var ParseFormat = map[string]Format{
	"newick": Newick,
	"nexus":  Nexus,
}

func (f *Format) Set(s string) error {
	if format, ok := ParseFormat[s]; ok {
		*f = format
		return nil
	}
	return fmt.Errorf("\"%s\" is not a valid tree file format (one of %v)", s, FormatNames())
}

func (f Format) String() string {
	for s, fr := range ParseFormat {
		if fr == f {
			return s
		}
	}
	panic(fmt.Sprintf("format (%d) does not exist", f))
}

func (f *Format) Type() string {
	return "format"
}

func FormatNames() []string {
	names := make([]string, 0, len(ParseFormat))
	for s := range ParseFormat {
		names = append(names, s)
	}
	slices.Sort(names)
	return names
}

func NewImporter(r io.Reader, f Format) TreeImporter {
	switch f {
	case Newick:
		return NewNewickImporter(r)
	case Nexus:
		return NewNexusImporter(r)
	}
	panic(fmt.Sprintf("format (%d) does not exist", f))
}
