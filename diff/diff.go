// Package diff compares two values of the same shape and describes what
// changed. Results render as a compact single-line form for logs and an
// indented multi-line form for debugging. All functions are pure.
package diff

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Result describes the outcome of comparing two same-shaped values.
type Result interface {
	Changed() bool
	// String returns the compact single-line rendering.
	String() string
	// Pretty returns the indented multi-line rendering.
	Pretty() string
}

// Same is the result of comparing two equal values.
var Same Result = same{}

type same struct{}

func (same) Changed() bool  { return false }
func (same) String() string { return "same" }
func (same) Pretty() string { return "same" }

// Pair is a scalar mismatch carrying both rendered values.
func Pair(left, right string) Result {
	return pair{left: left, right: right}
}

type pair struct {
	left  string
	right string
}

func (p pair) Changed() bool  { return true }
func (p pair) String() string { return p.left + " -> " + p.right }
func (p pair) Pretty() string { return p.String() }

// Scalar compares two comparable values by equality.
func Scalar[T comparable](left, right T) Result {
	if left == right {
		return Same
	}
	return Pair(fmt.Sprint(left), fmt.Sprint(right))
}

// Times compares at one-second resolution. Sub-second jitter from
// round-tripping through storage must not register as a difference.
func Times(left, right time.Time) Result {
	l := left.Truncate(time.Second)
	r := right.Truncate(time.Second)
	if l.Equal(r) {
		return Same
	}
	return Pair(l.UTC().Format(time.RFC3339), r.UTC().Format(time.RFC3339))
}

// Floats compares at a fixed 6-decimal-place resolution.
func Floats(left, right float64) Result {
	if math.Round(left*1e6) == math.Round(right*1e6) {
		return Same
	}
	return Pair(
		strconv.FormatFloat(left, 'f', 6, 64),
		strconv.FormatFloat(right, 'f', 6, 64),
	)
}
