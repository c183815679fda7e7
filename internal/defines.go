// Package internal holds helpers shared by the emulator packages.
package internal

import (
	"iter"
	"maps"
	"slices"
)

// MergeDefines merges tables of assembler defines into one sequence in
// name order. A name in a later table overrides the earlier ones.
func MergeDefines(tables ...iter.Seq2[string, string]) iter.Seq2[string, string] {
	return func(yield func(name, value string) bool) {
		merged := map[string]string{}
		for _, table := range tables {
			maps.Insert(merged, table)
		}

		for _, name := range slices.Sorted(maps.Keys(merged)) {
			if !yield(name, merged[name]) {
				return
			}
		}
	}
}
