package diff

import (
	"fmt"
	"sort"
	"strings"
)

// Field names one field of a record comparison.
type Field struct {
	Name   string
	Result Result
}

// Record aggregates per-field comparisons of a struct-like value. Only the
// fields that differ are kept, sorted by name for deterministic rendering.
func Record(fields ...Field) Result {
	var changed []Field
	for _, f := range fields {
		if f.Result.Changed() {
			changed = append(changed, f)
		}
	}
	if len(changed) == 0 {
		return Same
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Name < changed[j].Name })
	return recordDiff{fields: changed}
}

type recordDiff struct {
	fields []Field
}

func (d recordDiff) Changed() bool { return true }

// Fields returns the differing fields, sorted by name.
func (d recordDiff) Fields() []Field { return d.fields }

func (d recordDiff) String() string {
	parts := make([]string, 0, len(d.fields))
	for _, f := range d.fields {
		parts = append(parts, f.Name+": "+f.Result.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d recordDiff) Pretty() string {
	var b strings.Builder
	for _, f := range d.fields {
		nested := f.Result.Pretty()
		if strings.Contains(nested, "\n") {
			fmt.Fprintf(&b, "%s:\n%s\n", f.Name, indent(nested))
		} else {
			fmt.Fprintf(&b, "%s: %s\n", f.Name, nested)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
