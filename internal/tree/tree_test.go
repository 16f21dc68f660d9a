package tree

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/jsdoublel/fertree/internal/annotation"
)

const tolerance = 1e-9

// ((A:1,B:2)ab:3,(C:1,(D:0.5,E:0.5)de:0.5)cde:3)root;
func exampleTree() (*Tree, map[string]NodeIndex) {
	t := New()
	idx := make(map[string]NodeIndex)
	leaf := func(name string, length float64) NodeIndex {
		i, _ := t.MakeExternalNode(name, nil)
		t.SetLength(i, length)
		idx[name] = i
		return i
	}
	internal := func(name string, length float64, children ...NodeIndex) NodeIndex {
		i := t.MakeInternalNode(children)
		t.SetLabel(i, name)
		if name != "root" {
			t.SetLength(i, length)
		}
		idx[name] = i
		return i
	}
	ab := internal("ab", 3, leaf("A", 1), leaf("B", 2))
	de := internal("de", 0.5, leaf("D", 0.5), leaf("E", 0.5))
	cde := internal("cde", 3, leaf("C", 1), de)
	t.SetRoot(internal("root", 0, ab, cde))
	return t, idx
}

func taxaOf(t *Tree, nodes []NodeIndex) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i], _ = t.Taxon(n)
	}
	return names
}

func TestMakeExternalNode(t *testing.T) {
	tre := New()
	if _, ok := tre.MakeExternalNode("A", map[string]bool{"B": true}); ok {
		t.Errorf("node created for taxon outside allow list")
	}
	if tre.NodeCount() != 0 {
		t.Errorf("filtered node still stored, count %d", tre.NodeCount())
	}
	i, ok := tre.MakeExternalNode("B", map[string]bool{"B": true})
	if !ok {
		t.Fatalf("node not created for allowed taxon")
	}
	if j, ok := tre.NodeByTaxon("B"); !ok || j != i {
		t.Errorf("NodeByTaxon(B) = %d, %t", j, ok)
	}
	if _, ok := tre.NodeByTaxon("A"); ok {
		t.Errorf("NodeByTaxon found missing taxon")
	}
	if _, ok := tre.MakeExternalNode("", map[string]bool{"B": true}); ok {
		t.Errorf("unnamed node created under an allow list")
	}
	j, ok := tre.MakeExternalNode("", nil)
	if !ok {
		t.Fatalf("unnamed node not created")
	}
	if _, ok := tre.Taxon(j); ok {
		t.Errorf("unnamed node has a taxon")
	}
	if _, ok := tre.NodeByTaxon(""); ok {
		t.Errorf("unnamed node is indexed")
	}
	if tre.ExternalNodeCount() != 2 {
		t.Errorf("%d external nodes, expected 2", tre.ExternalNodeCount())
	}
}

func TestRemoveChild(t *testing.T) {
	testCases := []struct {
		name     string
		remove   int
		expected []string
	}{
		{name: "head", remove: 0, expected: []string{"B", "C"}},
		{name: "middle", remove: 1, expected: []string{"A", "C"}},
		{name: "tail", remove: 2, expected: []string{"A", "B"}},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tre := New()
			var leaves []NodeIndex
			for _, name := range []string{"A", "B", "C"} {
				i, _ := tre.MakeExternalNode(name, nil)
				leaves = append(leaves, i)
			}
			p := tre.MakeInternalNode(leaves)
			removed := leaves[test.remove]
			if err := tre.RemoveChild(p, removed); err != nil {
				t.Fatalf("unexpected error %s", err)
			}
			if names := taxaOf(tre, tre.Children(p)); !reflect.DeepEqual(names, test.expected) {
				t.Errorf("children %v != %v", names, test.expected)
			}
			if _, ok := tre.Parent(removed); ok {
				t.Errorf("removed node still has a parent")
			}
			if _, ok := tre.NextSibling(removed); ok {
				t.Errorf("removed node still has a next sibling")
			}
			if _, ok := tre.PreviousSibling(removed); ok {
				t.Errorf("removed node still has a previous sibling")
			}
			children := tre.Children(p)
			if first, _ := tre.FirstChild(p); first != children[0] {
				t.Errorf("first child %d != %d", first, children[0])
			}
			if prev, ok := tre.PreviousSibling(children[0]); ok {
				t.Errorf("first child has previous sibling %d", prev)
			}
			if prev, _ := tre.PreviousSibling(children[1]); prev != children[0] {
				t.Errorf("previous sibling %d != %d", prev, children[0])
			}
			if next, ok := tre.NextSibling(children[1]); ok {
				t.Errorf("last child has next sibling %d", next)
			}
			if err := tre.RemoveChild(p, removed); !errors.Is(err, ErrNotChild) {
				t.Errorf("removing twice gave %v", err)
			}
		})
	}
}

func TestAddChildMovesNode(t *testing.T) {
	tre, idx := exampleTree()
	tre.Height(idx["A"])
	tre.AddChild(idx["ab"], idx["C"])
	if names := taxaOf(tre, tre.Children(idx["ab"])); !reflect.DeepEqual(names, []string{"A", "B", "C"}) {
		t.Errorf("ab children %v", names)
	}
	if tre.ChildCount(idx["cde"]) != 1 {
		t.Errorf("cde still has %d children", tre.ChildCount(idx["cde"]))
	}
	if tre.HeightsKnown() {
		t.Errorf("heights should be stale after a structural edit")
	}
}

func TestAddChildCycle(t *testing.T) {
	tre, idx := exampleTree()
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic adding an ancestor below its descendant")
		}
	}()
	tre.AddChild(idx["de"], idx["cde"])
}

func TestPreorder(t *testing.T) {
	tre, idx := exampleTree()
	expected := []NodeIndex{idx["root"], idx["ab"], idx["A"], idx["B"], idx["cde"], idx["C"], idx["de"], idx["D"], idx["E"]}
	order := tre.Preorder()
	if !reflect.DeepEqual(order, expected) {
		t.Fatalf("preorder %v != %v", order, expected)
	}
	for _, i := range order {
		if tre.IsExternal(i) {
			p, _ := tre.Parent(i)
			if err := tre.RemoveChild(p, i); err != nil {
				t.Fatalf("unexpected error %s", err)
			}
		}
	}
	if len(order) != len(expected) {
		t.Errorf("walk was cut short by edits")
	}
	if got := tre.Taxa(); len(got) != 0 {
		t.Errorf("taxa remaining after removing every leaf: %v", got)
	}
}

func TestHeights(t *testing.T) {
	tre, idx := exampleTree()
	expected := map[string]float64{
		"root": 5, "ab": 2, "A": 1, "B": 0, "cde": 2, "C": 1, "de": 1.5, "D": 1, "E": 1,
	}
	for name, h := range expected {
		got, ok := tre.Height(idx[name])
		if !ok || math.Abs(got-h) > tolerance {
			t.Errorf("height of %s = %f, expected %f", name, got, h)
		}
	}
	if !tre.HeightsKnown() || !tre.BranchLengthsKnown() {
		t.Errorf("both representations should be current after a height read")
	}
}

func TestHeightLengthDuality(t *testing.T) {
	tre, _ := exampleTree()
	original := make(map[NodeIndex]float64)
	root, _ := tre.Root()
	for _, i := range tre.Preorder() {
		if i != root {
			original[i], _ = tre.Length(i)
		}
	}
	tre.CalcNodeHeights()
	tre.CalculateBranchLengths()
	for i, l := range original {
		got, ok := tre.Length(i)
		if !ok || math.Abs(got-l) > tolerance {
			t.Errorf("length of %d = %f, expected %f", i, got, l)
		}
	}
	if _, ok := tre.Length(root); ok {
		t.Errorf("root should have no branch length")
	}
}

func TestSetHeightInvalidatesLengths(t *testing.T) {
	tre, idx := exampleTree()
	tre.SetHeight(idx["ab"], 4)
	if tre.BranchLengthsKnown() {
		t.Fatalf("branch lengths should be stale after SetHeight")
	}
	// heights of other nodes come from the lengths that were current before
	if h, _ := tre.Height(idx["A"]); math.Abs(h-1) > tolerance {
		t.Errorf("height of A = %f, expected 1", h)
	}
	testCases := map[string]float64{"ab": 1, "A": 3, "B": 4, "cde": 3}
	for name, l := range testCases {
		got, _ := tre.Length(idx[name])
		if math.Abs(got-l) > tolerance {
			t.Errorf("length of %s = %f, expected %f", name, got, l)
		}
	}
}

func TestSetLengthInvalidatesHeights(t *testing.T) {
	tre, idx := exampleTree()
	tre.SetHeight(idx["D"], 0) // heights authoritative, lengths stale
	tre.SetLength(idx["D"], 2)
	if tre.HeightsKnown() {
		t.Fatalf("heights should be stale after SetLength")
	}
	if l, _ := tre.Length(idx["E"]); math.Abs(l-0.5) > tolerance {
		t.Errorf("length of E = %f, expected 0.5", l)
	}
	if h, _ := tre.Height(idx["root"]); math.Abs(h-5.5) > tolerance {
		t.Errorf("root height = %f, expected 5.5", h)
	}
}

func TestUnsetPanics(t *testing.T) {
	tre := New()
	i, _ := tre.MakeExternalNode("A", nil)
	tre.SetRoot(tre.MakeInternalNode([]NodeIndex{i}))
	for name, read := range map[string]func(NodeIndex) (float64, bool){
		"height": tre.Height,
		"length": tre.Length,
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic")
				}
			}()
			read(i)
		})
	}
}

func TestMRCA(t *testing.T) {
	tre, idx := exampleTree()
	testCases := []struct {
		a, b     string
		expected string
	}{
		{a: "D", b: "E", expected: "de"},
		{a: "C", b: "E", expected: "cde"},
		{a: "A", b: "E", expected: "root"},
		{a: "de", b: "D", expected: "de"},
	}
	for _, test := range testCases {
		if got := tre.MRCA(idx[test.a], idx[test.b]); got != idx[test.expected] {
			t.Errorf("MRCA(%s, %s) = %d, expected %s", test.a, test.b, got, test.expected)
		}
	}
}

func TestAnnotateNode(t *testing.T) {
	tre, idx := exampleTree()
	if err := tre.AnnotateNode(idx["A"], "location", annotation.Discrete("UK")); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	if err := tre.AnnotateNode(idx["B"], "location", annotation.Continuous(3)); err != nil {
		t.Fatalf("continuous value for discrete key should be coerced, got %s", err)
	}
	if v, _ := tre.Annotation(idx["B"], "location"); v != annotation.Discrete("3") {
		t.Errorf("coerced value %#v", v)
	}
	if err := tre.AnnotateNode(idx["A"], "count", annotation.Continuous(1)); err != nil {
		t.Fatalf("unexpected error %s", err)
	}
	err := tre.AnnotateNode(idx["B"], "count", annotation.Discrete("one"))
	if !errors.Is(err, ErrAnnotationType) {
		t.Errorf("expected %v, got %v", ErrAnnotationType, err)
	}
	if _, ok := tre.Annotation(idx["B"], "count"); ok {
		t.Errorf("rejected value was stored")
	}
	if k, _ := tre.AnnotationKind("count"); k != annotation.ContinuousKind {
		t.Errorf("count registered as %s", k)
	}
	if keys := tre.AnnotationKeys(); !reflect.DeepEqual(keys, []string{"count", "location"}) {
		t.Errorf("keys %v", keys)
	}
	if keys := tre.NodeAnnotationKeys(idx["B"]); !reflect.DeepEqual(keys, []string{"location"}) {
		t.Errorf("node keys %v", keys)
	}
	jumps := annotation.Set{annotation.MarkovJump{Time: 1, Source: "UK", Destination: "US"}}
	if err := tre.AnnotateNode(idx["C"], "history", jumps); err != nil {
		t.Errorf("markov jumps inside a set should be accepted, got %s", err)
	}
}

func TestAnnotateBareMarkovJump(t *testing.T) {
	tre, idx := exampleTree()
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for bare markov jump")
		}
	}()
	tre.AnnotateNode(idx["A"], "jump", annotation.MarkovJump{Time: 1, Source: "a", Destination: "b"})
}

func TestFromTree(t *testing.T) {
	testCases := []struct {
		name     string
		taxa    []string
		parents map[string]string
		lengths map[string]float64
	}{
		{
			name:    "contract below root",
			taxa:    []string{"A", "B", "C", "D"},
			parents: map[string]string{"A": "ab", "B": "ab", "C": "cde", "D": "cde"},
			lengths: map[string]float64{"A": 1, "B": 2, "C": 1, "D": 1},
		},
		{
			name:    "contract root",
			taxa:    []string{"D", "E", "C"},
			parents: map[string]string{"C": "cde", "D": "de", "E": "de"},
			lengths: map[string]float64{"C": 1, "D": 0.5, "E": 0.5, "de": 0.5},
		},
		{
			name:    "contract several levels",
			taxa:    []string{"A", "E"},
			parents: map[string]string{"A": "root", "E": "root"},
			lengths: map[string]float64{"A": 4, "E": 4},
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			src, _ := exampleTree()
			allow := make(map[string]bool)
			for _, taxon := range test.taxa {
				allow[taxon] = true
			}
			sub := FromTree(src, allow)
			if sub.ExternalNodeCount() != len(test.taxa) {
				t.Errorf("%d leaves, expected %d", sub.ExternalNodeCount(), len(test.taxa))
			}
			for _, i := range sub.Preorder() {
				if !sub.IsRoot(i) && !sub.IsExternal(i) && sub.ChildCount(i) == 1 {
					t.Errorf("single child node %d kept", i)
				}
			}
			for taxon, parent := range test.parents {
				i, ok := sub.NodeByTaxon(taxon)
				if !ok {
					t.Fatalf("taxon %s missing", taxon)
				}
				p, _ := sub.Parent(i)
				if label, _ := sub.Label(p); label != parent {
					t.Errorf("parent of %s is %s, expected %s", taxon, label, parent)
				}
			}
			for name, l := range test.lengths {
				i, ok := sub.NodeByTaxon(name)
				if !ok {
					i, _ = sub.NodeByLabel(name)
				}
				if got, _ := sub.Length(i); math.Abs(got-l) > tolerance {
					t.Errorf("length of %s = %f, expected %f", name, got, l)
				}
			}
		})
	}
}

func TestFromTreeKeepsAnnotations(t *testing.T) {
	src, idx := exampleTree()
	src.SetID("tree0")
	src.AnnotateTree("R", annotation.Boolean(true))
	if err := src.AnnotateNode(idx["D"], "location", annotation.Discrete("UK")); err != nil {
		t.Fatal(err)
	}
	sub := FromTree(src, map[string]bool{"C": true, "D": true})
	d, _ := sub.NodeByTaxon("D")
	if v, _ := sub.Annotation(d, "location"); v != annotation.Discrete("UK") {
		t.Errorf("annotation lost, got %v", v)
	}
	if sub.ID() != "tree0" {
		t.Errorf("id %q", sub.ID())
	}
	if _, ok := sub.TreeAnnotation("R"); !ok {
		t.Errorf("tree annotation lost")
	}
	if h, _ := sub.Height(d); math.Abs(h) > tolerance {
		t.Errorf("height of D = %f, expected 0", h)
	}
}

func TestAncestralTree(t *testing.T) {
	src, _ := exampleTree()
	sub := AncestralTree(src, map[string]bool{"A": true, "D": true})
	// root -> ab -> A and root -> cde -> de -> D
	if n := sub.NodeCount(); n != 6 {
		t.Errorf("%d nodes, expected 6", n)
	}
	ab, _ := sub.NodeByLabel("ab")
	if sub.ChildCount(ab) != 1 {
		t.Errorf("ab has %d children, expected 1", sub.ChildCount(ab))
	}
	expected := map[string]float64{"ab": 3, "cde": 3, "de": 0.5}
	for label, l := range expected {
		i, ok := sub.NodeByLabel(label)
		if !ok {
			t.Fatalf("%s missing", label)
		}
		if got, _ := sub.Length(i); math.Abs(got-l) > tolerance {
			t.Errorf("length of %s = %f, expected %f", label, got, l)
		}
	}
	d, _ := sub.NodeByTaxon("D")
	if got, _ := sub.Length(d); math.Abs(got-0.5) > tolerance {
		t.Errorf("length of D = %f, expected 0.5", got)
	}
}

func TestCopySubtree(t *testing.T) {
	src, idx := exampleTree()
	sub := CopySubtree(src, idx["cde"], nil)
	if taxa := sub.Taxa(); !reflect.DeepEqual(taxa, []string{"C", "D", "E"}) {
		t.Errorf("taxa %v", taxa)
	}
	root, _ := sub.Root()
	if _, ok := sub.Length(root); ok {
		t.Errorf("copied root has a branch length")
	}
	if h, _ := sub.Height(root); math.Abs(h-1) > tolerance {
		t.Errorf("root height %f, expected 1", h)
	}
}

func TestFromTreeEmpty(t *testing.T) {
	src, _ := exampleTree()
	sub := FromTree(src, map[string]bool{"Z": true})
	if _, ok := sub.Root(); ok {
		t.Errorf("expected empty tree")
	}
}
