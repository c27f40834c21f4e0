package main

import "math/rand"

// WorkloadType mirrors the teacher's three mixed-operation scenarios.
type WorkloadType string

const (
	OLTP      WorkloadType = "OLTP (90/10)"
	OLAP      WorkloadType = "OLAP (10/90)"
	Reporting WorkloadType = "Reporting (Range)"
)

// ExecuteWorkload runs a mixed distribution of operations against idx,
// adapted from the teacher's ExecuteWorkload to the Index interface
// above (rid.RID values instead of raw []byte payloads).
func ExecuteWorkload(idx Index, wType WorkloadType, ops int) {
	for i := 0; i < ops; i++ {
		choice := rand.Intn(100)
		key := int32(rand.Intn(ops))

		switch wType {
		case OLTP:
			if choice < 90 {
				_, _ = idx.Get(key)
			} else {
				_ = idx.Insert(key, newRID(key))
			}
		case OLAP:
			if choice < 10 {
				_, _ = idx.Get(key)
			} else {
				_ = idx.Insert(key, newRID(key))
			}
		case Reporting:
			_, _ = idx.Range(key, key+100)
		}
	}
}
