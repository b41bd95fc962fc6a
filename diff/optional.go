package diff

import "fmt"

// Optional compares two possibly-absent values. Both absent is same. Exactly
// one absent is a partial difference recording which side is present and its
// rendered value. Both present recurses through cmp.
func Optional[T any](left, right *T, cmp func(T, T) Result) Result {
	switch {
	case left == nil && right == nil:
		return Same
	case right == nil:
		return OnlyLeft(fmt.Sprint(*left))
	case left == nil:
		return OnlyRight(fmt.Sprint(*right))
	default:
		return cmp(*left, *right)
	}
}

// OnlyLeft is a partial difference where only the left value is present.
func OnlyLeft(value string) Result {
	return partial{side: "left", value: value}
}

// OnlyRight is a partial difference where only the right value is present.
func OnlyRight(value string) Result {
	return partial{side: "right", value: value}
}

type partial struct {
	side  string
	value string
}

func (p partial) Changed() bool  { return true }
func (p partial) String() string { return "only " + p.side + ": " + p.value }
func (p partial) Pretty() string { return p.String() }
