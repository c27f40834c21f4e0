package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

func main() {
	f, err := os.Create("ixbench_results.csv")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"Structure", "Config", "TestType", "LatencyNs", "MemMB", "HeapObjects"})

	scale := 20000
	backends := []string{"ixtree", "pebble"}
	ops := []string{"Footprint_SteadyState", "Workload_OLTP", "Workload_OLAP", "Workload_Range"}
	latency := make(map[string]map[string]float64)

	for _, backend := range backends {
		dir, err := os.MkdirTemp("", "ixbench-"+backend)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer os.RemoveAll(dir)

		var idx Index
		switch backend {
		case "ixtree":
			idx, err = openIxIndex(dir)
		case "pebble":
			idx, err = openPebbleIndex(dir)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		latency[backend] = runSuite(w, backend, idx, scale)
		idx.Close()
	}
	w.Flush()

	if err := renderLatencyChart("ixbench_latency.png", backends, ops, latency); err != nil {
		fmt.Fprintln(os.Stderr, "chart render failed:", err)
	}

	fmt.Println("Benchmark complete. ixbench_results.csv and ixbench_latency.png written.")
}

// runSuite mirrors the teacher's runSuite: one pure-insert load phase
// followed by OLTP, OLAP, and a range-scan scenario, each recorded as
// a CSV row and returned keyed by operation name for the chart.
func runSuite(w *csv.Writer, name string, idx Index, n int) map[string]float64 {
	fmt.Printf("Testing %s (n=%d)\n", name, n)
	latency := make(map[string]float64)

	start := time.Now()
	for k := 0; k < n; k++ {
		_ = idx.Insert(int32(k), newRID(int32(k)))
	}
	insertLatency := time.Since(start).Nanoseconds() / int64(n)

	stats := GetDetailedMem()
	record(w, latency, BenchResult{name, fmt.Sprint(n), "Footprint_SteadyState", insertLatency, stats.AllocMB, stats.HeapObjects})

	start = time.Now()
	ExecuteWorkload(idx, OLTP, n/2)
	record(w, latency, BenchResult{name, fmt.Sprint(n), "Workload_OLTP", time.Since(start).Nanoseconds() / int64(n/2), GetDetailedMem().AllocMB, 0})

	start = time.Now()
	ExecuteWorkload(idx, OLAP, n/2)
	record(w, latency, BenchResult{name, fmt.Sprint(n), "Workload_OLAP", time.Since(start).Nanoseconds() / int64(n/2), GetDetailedMem().AllocMB, 0})

	start = time.Now()
	ExecuteWorkload(idx, Reporting, 100)
	record(w, latency, BenchResult{name, fmt.Sprint(n), "Workload_Range", time.Since(start).Nanoseconds() / 100, GetDetailedMem().AllocMB, 0})

	return latency
}

func record(w *csv.Writer, latency map[string]float64, res BenchResult) {
	Record(w, res)
	latency[res.Operation] = float64(res.LatencyNs)
}
