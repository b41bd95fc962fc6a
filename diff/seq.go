package diff

import (
	"fmt"
	"strings"
)

// SeqChange is the kind of a single positional sequence difference.
type SeqChange string

const (
	SeqChanged SeqChange = "changed"
	SeqAdded   SeqChange = "added"
	SeqRemoved SeqChange = "removed"
)

// SeqEntry is one positional difference in a sequence comparison.
type SeqEntry struct {
	Change SeqChange
	Index  int
	// Nested is the element diff for SeqChanged entries.
	Nested Result
	// Value is the rendered element for SeqAdded and SeqRemoved entries.
	Value string
}

// Seq compares two ordered sequences positionally, walking both in lock-step
// by index. Matched positions recurse through cmp; trailing elements present
// only on the left are removals, trailing elements only on the right are
// additions. This is index-aligned on purpose, not a minimal-edit-distance
// diff: an insertion near the front cascades into changes for every later
// index. Downstream change detection depends on exactly this behavior.
func Seq[T any](left, right []T, cmp func(T, T) Result) Result {
	var entries []SeqEntry
	n := min(len(left), len(right))
	for i := 0; i < n; i++ {
		if r := cmp(left[i], right[i]); r.Changed() {
			entries = append(entries, SeqEntry{Change: SeqChanged, Index: i, Nested: r})
		}
	}
	for i := n; i < len(left); i++ {
		entries = append(entries, SeqEntry{Change: SeqRemoved, Index: i, Value: fmt.Sprint(left[i])})
	}
	for i := n; i < len(right); i++ {
		entries = append(entries, SeqEntry{Change: SeqAdded, Index: i, Value: fmt.Sprint(right[i])})
	}
	if len(entries) == 0 {
		return Same
	}
	return seqDiff{entries: entries}
}

type seqDiff struct {
	entries []SeqEntry
}

func (d seqDiff) Changed() bool { return true }

// Entries returns the positional differences in index order.
func (d seqDiff) Entries() []SeqEntry { return d.entries }

func (d seqDiff) String() string {
	parts := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		parts = append(parts, e.compact())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (d seqDiff) Pretty() string {
	var b strings.Builder
	for _, e := range d.entries {
		if e.Change == SeqChanged {
			fmt.Fprintf(&b, "%s@%d:\n%s\n", e.Change, e.Index, indent(e.Nested.Pretty()))
		} else {
			fmt.Fprintf(&b, "%s\n", e.compact())
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (e SeqEntry) compact() string {
	if e.Change == SeqChanged {
		return fmt.Sprintf("%s@%d: %s", e.Change, e.Index, e.Nested.String())
	}
	return fmt.Sprintf("%s@%d: %s", e.Change, e.Index, e.Value)
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
