package treeio

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jsdoublel/fertree/internal/tree"
)

type nexusState int

const (
	seekBlock nexusState = iota
	readingTrees
	finished
)

// NexusImporter reads the trees of a Nexus file one TREE command at a time.
// TAXA blocks are checked and remembered, a TRANSLATE table maps the tip
// labels of the trees that follow it, and blocks other than TAXA and TREES are
// skipped.
type NexusImporter struct {
	s           *scanner
	state       nexusState
	header      bool
	command     string // last command read in the TREES block
	needCommand bool
	taxa        map[string]bool
	taxaOrder   []string
	translation map[string]string
	err         error
}

func NewNexusImporter(r io.Reader) *NexusImporter {
	return &NexusImporter{s: newScanner(r), taxa: make(map[string]bool)}
}

// Taxa returns the taxa declared in TAXA blocks read so far, in file order.
func (imp *NexusImporter) Taxa() []string {
	return imp.taxaOrder
}

// advance moves to the next TREE or UTREE command. Returns io.EOF when the
// TREES block (or the file) ends.
func (imp *NexusImporter) advance() error {
	if imp.err != nil {
		return imp.err
	}
	if imp.state == finished {
		return io.EOF
	}
	err := imp.position()
	if errors.Is(err, io.EOF) {
		imp.state = finished
	} else if err != nil {
		imp.err = err
	}
	return err
}

func (imp *NexusImporter) position() error {
	if !imp.header {
		if err := imp.readHeader(); err != nil {
			return err
		}
	}
	if imp.state == seekBlock {
		if err := imp.prepForTrees(); err != nil {
			return err
		}
		imp.state = readingTrees
	}
	if imp.needCommand {
		if err := imp.nextCommand(); err != nil {
			return err
		}
		imp.needCommand = false
	}
	switch {
	case isCommand(imp.command, "TREE", "UTREE"):
		return nil
	case isCommand(imp.command, "END", "ENDBLOCK"):
		return io.EOF
	}
	return imp.s.errorf("unknown command %q in TREES block", imp.command)
}

func (imp *NexusImporter) readHeader() error {
	tok, err := imp.s.readToken(";")
	if errors.Is(err, io.EOF) {
		return io.EOF
	} else if err != nil {
		return err
	}
	if !strings.EqualFold(tok, "#NEXUS") {
		return imp.s.errorf("missing #NEXUS header, found %q", tok)
	}
	imp.header = true
	return nil
}

// prepForTrees reads blocks until the start of a TREES block, leaving the
// first command of that block in imp.command.
func (imp *NexusImporter) prepForTrees() error {
	for {
		block, err := imp.findNextBlock()
		if err != nil {
			return err
		}
		switch {
		case strings.EqualFold(block, "TAXA"):
			if err := imp.readTaxaBlock(); err != nil {
				return err
			}
		case strings.EqualFold(block, "TREES"):
			return imp.nextCommand()
		default:
			log.Debug("skipping unsupported nexus block", "block", block, "line", imp.s.line)
		}
	}
}

func (imp *NexusImporter) findNextBlock() (string, error) {
	for {
		tok, err := imp.s.readToken(";")
		if err != nil {
			return "", err
		}
		if strings.EqualFold(tok, "BEGIN") {
			break
		}
	}
	block, err := imp.s.readToken(";")
	if err != nil {
		return "", imp.s.eof(err)
	}
	if imp.s.lastDelim != ';' {
		if err := imp.s.skipStatement(); err != nil {
			return "", err
		}
	}
	return block, nil
}

func (imp *NexusImporter) readTaxaBlock() error {
	ntax := -1
	tok, err := imp.s.readToken(";")
	if err != nil {
		return imp.s.eof(err)
	}
	if strings.EqualFold(tok, "DIMENSIONS") {
		key, err := imp.s.readToken("=;")
		if err != nil {
			return imp.s.eof(err)
		}
		if !strings.EqualFold(key, "NTAX") || imp.s.lastDelim != '=' {
			return imp.s.errorf("expected NTAX=n in DIMENSIONS, found %q", key)
		}
		if ntax, err = imp.s.readInt(";"); err != nil {
			return err
		}
		if imp.s.lastDelim != ';' {
			if err := imp.s.skipStatement(); err != nil {
				return err
			}
		}
		if tok, err = imp.s.readToken(";"); err != nil {
			return imp.s.eof(err)
		}
	}
	if !strings.EqualFold(tok, "TAXLABELS") {
		return imp.s.errorf("expected TAXLABELS in TAXA block, found %q", tok)
	}
	count := 0
	for imp.s.lastDelim != ';' {
		taxon, err := imp.s.readToken(";")
		if err != nil {
			return imp.s.eof(err)
		}
		if taxon == "" {
			continue
		}
		if imp.taxa[taxon] {
			return fmt.Errorf("%w, %q is listed twice in TAXLABELS (line %d)", ErrDuplicateTaxon, taxon, imp.s.line)
		}
		imp.taxa[taxon] = true
		imp.taxaOrder = append(imp.taxaOrder, taxon)
		count++
	}
	if ntax >= 0 && ntax != count {
		return imp.s.errorf("TAXLABELS lists %d taxa but NTAX=%d", count, ntax)
	}
	log.Debug("read taxa block", "taxa", count)
	return nil
}

// nextCommand reads the next command name in the TREES block into
// imp.command, handling TRANSLATE and skipping anything else it does not
// know.
func (imp *NexusImporter) nextCommand() error {
	for {
		tok, err := imp.s.readToken(";")
		if err != nil {
			return err
		}
		switch {
		case strings.EqualFold(tok, "TRANSLATE"):
			if err := imp.readTranslation(); err != nil {
				return err
			}
			continue
		case isCommand(tok, "TREE", "UTREE", "END", "ENDBLOCK"):
			imp.command = tok
			return nil
		case tok == "" && imp.s.lastDelim == ';':
			continue
		}
		log.Debug("skipping command in TREES block", "command", tok, "line", imp.s.line)
		if imp.s.lastDelim != ';' {
			if err := imp.s.skipStatement(); err != nil {
				return err
			}
		}
	}
}

func (imp *NexusImporter) readTranslation() error {
	table := make(map[string]string)
	for imp.s.lastDelim != ';' {
		key, err := imp.s.readToken(",;")
		if err != nil {
			return imp.s.eof(err)
		}
		if imp.s.lastDelim == ',' || imp.s.lastDelim == ';' {
			if key == "" && imp.s.lastDelim == ';' {
				break
			}
			return imp.s.errorf("missing taxon for %q in TRANSLATE", key)
		}
		taxon, err := imp.s.readToken(",;")
		if err != nil {
			return imp.s.eof(err)
		}
		if _, ok := table[key]; ok {
			return imp.s.errorf("TRANSLATE uses %q twice", key)
		}
		table[key] = taxon
	}
	imp.translation = table
	log.Debug("read translate table", "entries", len(table))
	return nil
}

func (imp *NexusImporter) translate(label string) (string, error) {
	if imp.translation == nil || label == "" {
		return label, nil
	}
	if taxon, ok := imp.translation[label]; ok {
		return taxon, nil
	}
	if imp.taxa[label] {
		return label, nil
	}
	return "", fmt.Errorf("%w, %q is not in the TRANSLATE table (line %d)", ErrUnknownTaxon, label, imp.s.line)
}

func (imp *NexusImporter) HasTree() bool {
	return imp.advance() == nil
}

func (imp *NexusImporter) ReadNextTree() (*tree.Tree, error) {
	if err := imp.advance(); err != nil {
		return nil, err
	}
	imp.needCommand = true
	start := time.Now()
	t, err := imp.readTreeCommand()
	if err != nil {
		imp.err = err
		return nil, err
	}
	log.Debug("parsed nexus tree", "id", t.ID(), "tips", t.ExternalNodeCount(), "elapsed", time.Since(start))
	return t, nil
}

// readTreeCommand reads "[*] label [comment] = [comment] branch ;" following a
// TREE or UTREE command name.
func (imp *NexusImporter) readTreeCommand() (*tree.Tree, error) {
	s := imp.s
	if ch, err := s.nextByte(); err != nil {
		return nil, s.eof(err)
	} else if ch == '*' {
		s.read()
	}
	label, err := s.readToken("=;")
	if err != nil {
		return nil, s.eof(err)
	}
	if s.lastDelim != '=' {
		return nil, s.errorf("missing '=' after tree %q", label)
	}
	t := tree.New()
	t.SetID(label)
	for key, value := range s.takePending() {
		t.AnnotateTree(key, value)
	}
	if ch, err := s.nextByte(); err != nil {
		return nil, s.eof(err)
	} else if ch != '(' {
		return nil, s.errorf("missing tree definition for tree %q", label)
	}
	tr := &treeReader{s: s, tree: t, translate: imp.translate}
	return tr.readTree()
}

func (imp *NexusImporter) SkipTree() error {
	if err := imp.advance(); err != nil {
		return err
	}
	imp.needCommand = true
	if err := imp.s.skipStatement(); err != nil {
		imp.err = err
		return err
	}
	return nil
}

// Err returns the first error other than io.EOF met while reading.
func (imp *NexusImporter) Err() error {
	return imp.err
}

func isCommand(tok string, names ...string) bool {
	for _, name := range names {
		if strings.EqualFold(tok, name) {
			return true
		}
	}
	return false
}
