package diff

import (
	"fmt"
	"sort"
	"strings"
)

// Set compares two unordered collections by value equality after string
// conversion. The difference lists elements present only on the left and
// only on the right, sorted by string form so renderings are reproducible.
func Set[T comparable](left, right []T) Result {
	leftSet := make(map[string]struct{}, len(left))
	for _, v := range left {
		leftSet[fmt.Sprint(v)] = struct{}{}
	}
	rightSet := make(map[string]struct{}, len(right))
	for _, v := range right {
		rightSet[fmt.Sprint(v)] = struct{}{}
	}

	var onlyLeft, onlyRight []string
	for v := range leftSet {
		if _, ok := rightSet[v]; !ok {
			onlyLeft = append(onlyLeft, v)
		}
	}
	for v := range rightSet {
		if _, ok := leftSet[v]; !ok {
			onlyRight = append(onlyRight, v)
		}
	}
	if len(onlyLeft) == 0 && len(onlyRight) == 0 {
		return Same
	}

	sort.Strings(onlyLeft)
	sort.Strings(onlyRight)
	return setDiff{onlyLeft: onlyLeft, onlyRight: onlyRight}
}

type setDiff struct {
	onlyLeft  []string
	onlyRight []string
}

func (d setDiff) Changed() bool { return true }

// OnlyLeft returns the elements present only on the left, sorted.
func (d setDiff) OnlyLeft() []string { return d.onlyLeft }

// OnlyRight returns the elements present only on the right, sorted.
func (d setDiff) OnlyRight() []string { return d.onlyRight }

func (d setDiff) String() string {
	parts := make([]string, 0, 2)
	if len(d.onlyLeft) > 0 {
		parts = append(parts, "only left: ["+strings.Join(d.onlyLeft, " ")+"]")
	}
	if len(d.onlyRight) > 0 {
		parts = append(parts, "only right: ["+strings.Join(d.onlyRight, " ")+"]")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d setDiff) Pretty() string {
	var b strings.Builder
	for _, v := range d.onlyLeft {
		fmt.Fprintf(&b, "only left: %s\n", v)
	}
	for _, v := range d.onlyRight {
		fmt.Fprintf(&b, "only right: %s\n", v)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
