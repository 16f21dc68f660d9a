package prep

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	gr "github.com/jsdoublel/fertree/internal/graphs"
	"github.com/jsdoublel/fertree/internal/treeio"
)

func TestReadAllTrees(t *testing.T) {
	testCases := []struct {
		name        string
		file        string
		format      treeio.Format
		numTrees    int
		ids         []string
		expectedErr error
	}{
		{
			name:     "basic",
			file:     "testdata/trees.nwk",
			format:   treeio.Newick,
			numTrees: 3,
			ids:      []string{"", "", ""},
		},
		{
			name:     "basic nexus",
			file:     "testdata/trees.nex",
			format:   treeio.Nexus,
			numTrees: 2,
			ids:      []string{"first", "second"},
		},
		{
			name:        "newick read as nexus",
			file:        "testdata/trees.nwk",
			format:      treeio.Nexus,
			expectedErr: treeio.ErrInvalidFormat,
		},
		{
			name:        "bad tree",
			file:        "testdata/badtree.nwk",
			format:      treeio.Newick,
			expectedErr: treeio.ErrInvalidFormat,
		},
		{
			name:        "empty",
			file:        "testdata/empty.nwk",
			format:      treeio.Newick,
			expectedErr: ErrInvalidFile,
		},
		{
			name:        "missing file",
			file:        "testdata/does-not-exist.nwk",
			format:      treeio.Newick,
			expectedErr: fs.ErrNotExist,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			imp, closer, err := OpenTrees(test.file, test.format)
			if err != nil {
				if !errors.Is(err, test.expectedErr) {
					t.Fatalf("failed with unexpected error %+v", err)
				}
				return
			}
			defer closer.Close()
			trees, err := ReadAllTrees(imp)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("failed with unexpected error %+v", err)
			}
			if err != nil {
				return
			}
			if len(trees) != test.numTrees {
				t.Errorf("wrong number of trees read (%d != %d)", len(trees), test.numTrees)
			}
			var ids []string
			for _, tre := range trees {
				ids = append(ids, tre.ID())
				if tre.ExternalNodeCount() != 4 {
					t.Errorf("tree %q has %d tips", tre.ID(), tre.ExternalNodeCount())
				}
			}
			if !reflect.DeepEqual(ids, test.ids) {
				t.Errorf("ids %v != %v", ids, test.ids)
			}
		})
	}
}

func TestReadTreeFile(t *testing.T) {
	testCases := []struct {
		name        string
		file        string
		expectedErr error
	}{
		{name: "basic", file: "testdata/one.nwk"},
		{name: "more than one tree", file: "testdata/trees.nwk", expectedErr: ErrInvalidFile},
		{name: "empty", file: "testdata/empty.nwk", expectedErr: ErrInvalidFile},
		{name: "bad tree", file: "testdata/badtree.nwk", expectedErr: treeio.ErrInvalidFormat},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tre, err := ReadTreeFile(test.file, treeio.Newick)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("failed with unexpected error %+v", err)
			}
			if err == nil && tre.ExternalNodeCount() != 4 {
				t.Errorf("tree has %d tips", tre.ExternalNodeCount())
			}
		})
	}
}

func TestReadTaxaFile(t *testing.T) {
	taxa, err := ReadTaxaFile("testdata/taxa.txt")
	if err != nil {
		t.Fatalf("failed with unexpected error %+v", err)
	}
	expected := map[string]bool{"A": true, "B": true, "C": true}
	if !reflect.DeepEqual(taxa, expected) {
		t.Errorf("taxa %v != %v", taxa, expected)
	}
	if _, err := ReadTaxaFile("testdata/empty.nwk"); !errors.Is(err, ErrInvalidFile) {
		t.Errorf("expected ErrInvalidFile for an empty list, got %v", err)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTable(&buf, []string{"tree", "taxa"}, [][]string{{"0", "A"}, {"0", "B c"}})
	if err != nil {
		t.Fatalf("failed with unexpected error %+v", err)
	}
	expected := "tree\ttaxa\n0\tA\n0\tB c\n"
	if buf.String() != expected {
		t.Errorf("wrote %q, expected %q", buf.String(), expected)
	}
}

func TestWriteLTTPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ltt.png")
	points := []gr.LTTPoint{{Time: 5, Lineages: 2}, {Time: 2, Lineages: 3}, {Time: 1, Lineages: 1}, {Time: 0, Lineages: 0}}
	if err := WriteLTTPlot(points, path); err != nil {
		t.Fatalf("failed with unexpected error %+v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot was not written: %s", err)
	}
	if info.Size() == 0 {
		t.Errorf("plot file is empty")
	}
	if err := WriteLTTPlot(nil, path); !errors.Is(err, ErrWritingFile) {
		t.Errorf("expected ErrWritingFile for no points, got %v", err)
	}
}
