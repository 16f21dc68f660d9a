// Package annotation implements the typed metadata attached to tree nodes and
// the bracketed comment grammar ([&key=value,...]) used to carry it in Newick
// and Nexus files.
package annotation

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant of Value a key holds.
type Kind int

const (
	DiscreteKind Kind = iota
	ContinuousKind
	BooleanKind
	SetKind
	MarkovJumpKind
)

var kindNames = map[Kind]string{
	DiscreteKind:   "discrete",
	ContinuousKind: "continuous",
	BooleanKind:    "boolean",
	SetKind:        "set",
	MarkovJumpKind: "markov jump",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	panic(fmt.Sprintf("annotation kind (%d) does not exist", k))
}

// Value is one of Discrete, Continuous, Boolean, Set or MarkovJump. String
// returns the value in the same syntax Parse reads.
type Value interface {
	Kind() Kind
	String() string
}

type Discrete string

type Continuous float64

type Boolean bool

type Set []Value

// A state transition at a given time, only ever found inside a Set.
type MarkovJump struct {
	Time        float64
	Source      string
	Destination string
}

func (Discrete) Kind() Kind   { return DiscreteKind }
func (Continuous) Kind() Kind { return ContinuousKind }
func (Boolean) Kind() Kind    { return BooleanKind }
func (Set) Kind() Kind        { return SetKind }
func (MarkovJump) Kind() Kind { return MarkovJumpKind }

// Discrete values are always quoted so they survive a round trip regardless of
// the characters they contain.
func (d Discrete) String() string {
	return QuoteString(string(d))
}

func (c Continuous) String() string {
	return strconv.FormatFloat(float64(c), 'g', -1, 64)
}

func (b Boolean) String() string {
	return strconv.FormatBool(bool(b))
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = v.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (mj MarkovJump) String() string {
	return fmt.Sprintf("{%s,%s,%s}",
		strconv.FormatFloat(mj.Time, 'g', -1, 64), QuoteString(mj.Source), QuoteString(mj.Destination))
}

// Text returns the value without the quoting String adds to discrete values.
// Used when values are written to tables rather than back into a tree file.
func Text(v Value) string {
	if d, ok := v.(Discrete); ok {
		return string(d)
	}
	return v.String()
}
