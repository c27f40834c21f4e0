// Command ixbench benchmarks internal/index against a Pebble-backed
// comparison index of the same shape, generalizing the teacher
// repository's main.go/workload.go/benchmark.go harness
// (SPEC_FULL.md §2, §6; DESIGN.md's cmd/ixbench entry).
package main

import (
	"ixtree/internal/rid"
)

// Index is the common surface runSuite drives, implemented once over
// internal/index.Handle and once over Pebble.
type Index interface {
	Insert(key int32, r rid.RID) error
	Get(key int32) ([]rid.RID, error)
	Range(lo, hi int32) ([]rid.RID, error)
	Close() error
}
