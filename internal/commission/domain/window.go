package domain

import "time"

// WindowContains reports whether [from, to] contains at, treating nil
// bounds as unbounded.
func WindowContains(from, to *time.Time, at time.Time) bool {
	if from != nil && from.After(at) {
		return false
	}
	if to != nil && to.Before(at) {
		return false
	}
	return true
}

// WindowsOverlap applies the standard interval test
// from1 <= to2 && from2 <= to1 with nil bounds as -inf/+inf.
func WindowsOverlap(from1, to1, from2, to2 *time.Time) bool {
	if from1 != nil && to2 != nil && from1.After(*to2) {
		return false
	}
	if from2 != nil && to1 != nil && from2.After(*to1) {
		return false
	}
	return true
}
