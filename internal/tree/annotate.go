package tree

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/jsdoublel/fertree/internal/annotation"
)

var ErrAnnotationType = errors.New("annotation type mismatch")

// AnnotateNode sets key to value on node i. The first value stored under a key
// fixes its kind for the whole tree. A continuous value for a discrete key is
// stored as its discrete text; any other mismatch returns ErrAnnotationType.
func (t *Tree) AnnotateNode(i NodeIndex, key string, value annotation.Value) error {
	value, err := t.checkType(key, value)
	if err != nil {
		return err
	}
	n := t.node(i)
	if n.annotations == nil {
		n.annotations = make(map[string]annotation.Value)
	}
	n.annotations[key] = value
	return nil
}

func (t *Tree) checkType(key string, value annotation.Value) (annotation.Value, error) {
	kind := value.Kind()
	if kind == annotation.MarkovJumpKind {
		panic(fmt.Sprintf("markov jump annotation %q must be inside a set", key))
	}
	registered, ok := t.annotationType[key]
	switch {
	case !ok:
		t.annotationType[key] = kind
	case registered == kind:
	case registered == annotation.DiscreteKind && kind == annotation.ContinuousKind:
		log.Warn("coercing continuous annotation to discrete", "key", key, "value", value)
		value = annotation.Discrete(annotation.Text(value))
	default:
		return nil, fmt.Errorf("%w, key %q is %s but got %s value %s", ErrAnnotationType, key, registered, kind, value)
	}
	return value, nil
}

// AnnotateNodeAll applies every annotation in values to node i in key order,
// stopping at the first error.
func (t *Tree) AnnotateNodeAll(i NodeIndex, values map[string]annotation.Value) error {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if err := t.AnnotateNode(i, key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) Annotation(i NodeIndex, key string) (annotation.Value, bool) {
	v, ok := t.node(i).annotations[key]
	return v, ok
}

// NodeAnnotations returns a copy of the annotations on node i.
func (t *Tree) NodeAnnotations(i NodeIndex) map[string]annotation.Value {
	return maps.Clone(t.node(i).annotations)
}

// NodeAnnotationKeys returns the keys set on node i in sorted order.
func (t *Tree) NodeAnnotationKeys(i NodeIndex) []string {
	return slices.Sorted(maps.Keys(t.node(i).annotations))
}

// AnnotationKeys returns every key used on any node of the tree, sorted.
func (t *Tree) AnnotationKeys() []string {
	return slices.Sorted(maps.Keys(t.annotationType))
}

func (t *Tree) AnnotationKind(key string) (annotation.Kind, bool) {
	k, ok := t.annotationType[key]
	return k, ok
}

// AnnotateTree sets a tree wide annotation, such as one written before the
// first node of a statement. Tree annotations are not type checked.
func (t *Tree) AnnotateTree(key string, value annotation.Value) {
	t.annotations[key] = value
}

func (t *Tree) TreeAnnotation(key string) (annotation.Value, bool) {
	v, ok := t.annotations[key]
	return v, ok
}

func (t *Tree) TreeAnnotationKeys() []string {
	return slices.Sorted(maps.Keys(t.annotations))
}
