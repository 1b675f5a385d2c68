//go:build windows

package filesystem

import "math"

// freeBytes is not measured on windows; the reserve check always passes
func freeBytes(string) (uint64, error) {
	return math.MaxUint64, nil
}
