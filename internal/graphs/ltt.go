package graphs

import (
	"slices"

	"github.com/jsdoublel/fertree/internal/tree"
)

// Number of lineages alive just after Time, where Time is measured backwards
// from the most recent tip
type LTTPoint struct {
	Time     float64
	Lineages int
}

// Lineage-through-time curve of t, one point per distinct node height from the
// root down to the most recent tip. Each internal node adds its number of
// children minus one lineage and each tip removes one.
func LineagesThroughTime(t *tree.Tree) []LTTPoint {
	type event struct {
		height float64
		delta  int
	}
	order := t.Preorder()
	if len(order) == 0 {
		return nil
	}
	events := make([]event, 0, len(order))
	for _, i := range order {
		h, _ := t.Height(i)
		if t.IsExternal(i) {
			events = append(events, event{h, -1})
		} else {
			events = append(events, event{h, t.ChildCount(i) - 1})
		}
	}
	slices.SortStableFunc(events, func(a, b event) int {
		switch {
		case a.height > b.height:
			return -1
		case a.height < b.height:
			return 1
		}
		return 0
	})
	points := make([]LTTPoint, 0, len(events))
	lineages := 1
	for j, e := range events {
		lineages += e.delta
		if j+1 < len(events) && events[j+1].height == e.height {
			continue
		}
		points = append(points, LTTPoint{Time: e.height, Lineages: lineages})
	}
	return points
}
