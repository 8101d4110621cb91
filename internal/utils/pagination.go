// Package utils holds small helpers shared across layers, with no knowledge
// of the catalog or generation domain.
package utils

import "strconv"

// AtoiDefault parses s as an int, falling back to def when s is empty or
// malformed. Handlers use it for optional numeric query parameters such as
// the audit-log "limit", where a bad value should mean "use the default"
// rather than a 400.
//
//	utils.AtoiDefault("50", 0) // 50
//	utils.AtoiDefault("", 0)   // 0
//	utils.AtoiDefault("x", 0)  // 0
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
