// Package utils holds small generic helpers with no domain knowledge,
// shared across layers.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer, returning def when s is
// empty or not a valid integer. Used for query parameters such as the
// page and page_size values on listing endpoints.
//
// Example:
//
//	page := utils.AtoiDefault(c.Query("page"), 1)
//	size := utils.AtoiDefault(c.Query("page_size"), 20)
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
