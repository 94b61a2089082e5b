// Package common provides the error taxonomy and small helpers shared by the
// streaming packages and command-line programs.
package common

import (
	"fmt"
	"os"
)

// Die prints the error and exits if the error is non-nil. The messages of
// categorized errors include their category.
func Die(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "ERROR:", err)
	os.Exit(2)
}

// Perc returns a/b in %. Returns 0 if b is 0.
func Perc(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return 100 * float64(a) / float64(b)
}

// Percf returns a/b in the format "x%" with the given precision.
func Percf(a, b, p int) string {
	return fmt.Sprintf(fmt.Sprintf("%%.%df%%%%", p), Perc(a, b))
}

// If returns a if cond is true, else b.
func If[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
