package treeio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/jsdoublel/fertree/internal/annotation"
	"github.com/jsdoublel/fertree/internal/tree"
)

// Lengths smaller than this in magnitude are written in scientific notation.
const DefaultSciThreshold = 1e-4

type Writer struct {
	SciThreshold    float64
	Topology        bool // omit branch lengths
	SkipAnnotations bool
}

func NewWriter() *Writer {
	return &Writer{SciThreshold: DefaultSciThreshold}
}

// Newick renders t as a Newick statement ending in ';'. Refuses to write a tree
// whose branch lengths are stale unless only the topology is wanted.
func (w *Writer) Newick(t *tree.Tree) (string, error) {
	root, ok := t.Root()
	if !ok {
		return "", fmt.Errorf("cannot write a tree without a root")
	}
	if !w.Topology && !t.BranchLengthsKnown() {
		return "", fmt.Errorf("%w, reconcile heights before writing tree %q", ErrUnreconciled, t.ID())
	}
	var b strings.Builder
	w.writeNode(&b, t, root)
	b.WriteByte(';')
	return b.String(), nil
}

func (w *Writer) writeNode(b *strings.Builder, t *tree.Tree, i tree.NodeIndex) {
	if children := t.Children(i); len(children) > 0 {
		b.WriteByte('(')
		for j, c := range children {
			if j > 0 {
				b.WriteByte(',')
			}
			w.writeNode(b, t, c)
		}
		b.WriteByte(')')
	}
	if taxon, ok := t.Taxon(i); ok && taxon != "" {
		b.WriteString(annotation.QuoteLabel(taxon))
	} else if label, ok := t.Label(i); ok {
		b.WriteString(annotation.QuoteLabel(label))
	}
	if !w.SkipAnnotations {
		writeAnnotations(b, t.NodeAnnotations(i))
	}
	if w.Topology || t.IsRoot(i) {
		return
	}
	if length, ok := t.Length(i); ok {
		b.WriteByte(':')
		b.WriteString(w.formatLength(length))
	}
}

// writeAnnotations writes [&key=value,...] for the keys present, in key
// order. A true boolean is written as the bare key.
func writeAnnotations(b *strings.Builder, values map[string]annotation.Value) {
	if len(values) == 0 {
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	b.WriteString("[&")
	for j, k := range keys {
		if j > 0 {
			b.WriteByte(',')
		}
		b.WriteString(annotation.QuoteKey(k))
		if values[k] == annotation.Boolean(true) {
			continue
		}
		b.WriteByte('=')
		b.WriteString(values[k].String())
	}
	b.WriteByte(']')
}

func (w *Writer) formatLength(l float64) string {
	if l != 0 && math.Abs(l) < w.SciThreshold {
		return strconv.FormatFloat(l, 'E', -1, 64)
	}
	return strconv.FormatFloat(l, 'f', -1, 64)
}

// WriteNewick writes t followed by a newline.
func (w *Writer) WriteNewick(out io.Writer, t *tree.Tree) error {
	s, err := w.Newick(t)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, s+"\n")
	return err
}

// WriteNexus writes trees as a Nexus file: a TAXA block with every taxon seen
// in any tree, then a TREES block with one TREE command per tree. Trees
// without an id are named tree0, tree1, ... by position.
func (w *Writer) WriteNexus(out io.Writer, trees []*tree.Tree) error {
	statements := make([]string, len(trees))
	var taxa []string
	seen := make(map[string]bool)
	for i, t := range trees {
		s, err := w.Newick(t)
		if err != nil {
			return err
		}
		id := t.ID()
		if id == "" {
			id = "tree" + strconv.Itoa(i)
		}
		var b strings.Builder
		b.WriteString(annotation.QuoteLabel(id))
		if keys := t.TreeAnnotationKeys(); len(keys) > 0 && !w.SkipAnnotations {
			values := make(map[string]annotation.Value, len(keys))
			for _, k := range keys {
				values[k], _ = t.TreeAnnotation(k)
			}
			b.WriteByte(' ')
			writeAnnotations(&b, values)
		}
		statements[i] = b.String() + " = " + s
		for _, taxon := range t.Taxa() {
			if !seen[taxon] && taxon != "" {
				seen[taxon] = true
				taxa = append(taxa, taxon)
			}
		}
	}
	bw := bufio.NewWriter(out)
	fmt.Fprintf(bw, "#NEXUS\n\nBEGIN TAXA;\n\tDIMENSIONS NTAX=%d;\n\tTAXLABELS\n", len(taxa))
	for _, taxon := range taxa {
		fmt.Fprintf(bw, "\t\t%s\n", annotation.QuoteLabel(taxon))
	}
	fmt.Fprint(bw, "\t;\nEND;\n\nBEGIN TREES;\n")
	for _, s := range statements {
		fmt.Fprintf(bw, "\tTREE %s\n", s)
	}
	fmt.Fprint(bw, "END;\n")
	return bw.Flush()
}

// NewickString renders t with the default writer settings.
func NewickString(t *tree.Tree) (string, error) {
	return NewWriter().Newick(t)
}

func WriteNewick(out io.Writer, t *tree.Tree) error {
	return NewWriter().WriteNewick(out, t)
}
