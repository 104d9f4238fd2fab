// Package utils holds small parsing helpers shared by the HTTP layer.
package utils

import "strconv"

// BoundedInt parses s as a positive integer and clamps it to [1, max].
// Empty, malformed, or non-positive input yields fallback. A max of zero
// means no upper bound. Used for page and page_size query parameters.
func BoundedInt(s string, fallback, max int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		n = fallback
	}
	if n < 1 {
		n = 1
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}
