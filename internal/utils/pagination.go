// Package utils holds tiny helpers with no domain knowledge.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int and falls back to def when s is empty
// or unparseable. Query parameters like ?page= and ?page_size= go through it
// so a bad value degrades to the default instead of failing the request.
// Surrounding whitespace is not tolerated; " 42" yields def.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
