package store

import "strings"

const pairKeySeparator = ":"

// PairKey is the order-independent identifier of the pair {a, b}.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + pairKeySeparator + b
}

// ValidUserID reports whether id can take part in a pair key without
// ambiguity.
func ValidUserID(id string) bool {
	return id != "" && !strings.Contains(id, pairKeySeparator)
}
