package bench

import (
	"fmt"
	"io"

	"github.com/toylabs/toypager/buf"
)

// Row is one line of a workload's report. Latency is not part of the
// CSV: the spec's column set is fixed to the buffer-pool counters below,
// so per-op latency only surfaces in the table format printed by
// cmd/pfbench.
type Row struct {
	Dataset  string
	ReadPct  int
	WritePct int
	NumPages int64
	Stats    buf.Stats
	Latency  LatencyStats
}

// CSVHeader is the fixed column set every Row serializes to.
const CSVHeader = "Dataset,ReadPct,WritePct,NumPages,LogicalReads,LogicalWrites,PhysicalReads,PhysicalWrites,BufferHits,BufferMisses,HitRatio"

// WriteCSV writes the header followed by one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := fmt.Fprintln(w, CSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		_, err := fmt.Fprintf(w, "%s,%d,%d,%d,%d,%d,%d,%d,%d,%d,%.4f\n",
			r.Dataset, r.ReadPct, r.WritePct, r.NumPages,
			r.Stats.LogicalReads, r.Stats.LogicalWrites,
			r.Stats.PhysicalReads, r.Stats.PhysicalWrites,
			r.Stats.BufferHits, r.Stats.BufferMisses, r.Stats.HitRatio(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
