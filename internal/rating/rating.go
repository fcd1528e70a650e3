// Package rating keeps feasibility rating arrays aligned with the generated
// alternatives they score.
package rating

const (
	// Unrated marks an alternative the participant has not scored yet.
	Unrated = -1
	// Min and Max bound the Likert feasibility scale.
	Min = 1
	Max = 5
)

// Valid reports whether r is a submitted Likert rating.
func Valid(r int) bool {
	return r >= Min && r <= Max
}

// Blank returns n unrated entries.
func Blank(n int) []int {
	if n < 0 {
		n = 0
	}
	out := make([]int, n)
	for i := range out {
		out[i] = Unrated
	}
	return out
}

// Reconcile returns a ratings array with exactly one entry per generated text.
//
// Valid ratings are kept at their position; anything else, and every index past
// the end of ratings, becomes Unrated. Only positional correspondence is
// recognized. A nil ratings slice yields a fully unrated array. The inputs are
// never modified.
func Reconcile(texts []string, ratings []int) []int {
	out := Blank(len(texts))
	if ratings == nil {
		return out
	}
	n := min(len(ratings), len(out))
	for i := 0; i < n; i++ {
		if Valid(ratings[i]) {
			out[i] = ratings[i]
		}
	}
	return out
}

// Equal reports whether a and b hold the same entries. nil and empty compare equal.
func Equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// At returns the rating at index i, or Unrated when i is outside ratings.
func At(ratings []int, i int) int {
	if i < 0 || i >= len(ratings) {
		return Unrated
	}
	return ratings[i]
}
