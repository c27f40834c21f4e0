package main

import (
	"encoding/csv"
	"runtime"
	"strconv"

	"ixtree/internal/rid"
)

// BenchResult is one CSV row, adapted from the teacher's BenchResult
// (Structure/Config/TestType/LatencyNs/MemMB/HeapObjects columns).
type BenchResult struct {
	Name      string
	Config    string
	Operation string
	LatencyNs int64
	MemMB     uint64
	Objects   uint64
}

type MemoryStats struct {
	AllocMB     uint64
	HeapObjects uint64
}

// GetDetailedMem forces a GC before sampling so the reading reflects
// live data rather than uncollected garbage, same rationale as the
// teacher's GetDetailedMem.
func GetDetailedMem() MemoryStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return MemoryStats{AllocMB: m.Alloc / 1024 / 1024, HeapObjects: m.HeapObjects}
}

func Record(w *csv.Writer, res BenchResult) {
	w.Write([]string{
		res.Name,
		res.Config,
		res.Operation,
		strconv.FormatInt(res.LatencyNs, 10),
		strconv.FormatUint(res.MemMB, 10),
		strconv.FormatUint(res.Objects, 10),
	})
}

func newRID(key int32) rid.RID {
	return rid.RID{PageNum: uint32(key), SlotNum: 0}
}
