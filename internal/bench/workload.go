package bench

import (
	"math/rand"
	"time"

	"github.com/toylabs/toypager/pf"
)

// Workload describes one read/write mix run against an already-populated
// paged file, expressed directly as a read percentage over a fixed page
// range rather than a named WorkloadType enum, since this engine has no
// key-value access pattern to vary.
type Workload struct {
	Dataset  string
	ReadPct  int // 0-100; the remainder is writes
	NumPages int
	NumOps   int
	Seed     int64
}

// Run drives NumOps page accesses against fd, each one a read or a write
// chosen per ReadPct, and reports the resulting buffer pool statistics as
// a Row. The pool's counters are reset first, so Row reflects only this
// run.
func Run(mgr *pf.Manager, fd int, w Workload) (Row, error) {
	mgr.Pool().ResetStatistics()
	rng := rand.New(rand.NewSource(w.Seed))
	hist := NewLatencyHistogram()

	for i := 0; i < w.NumOps; i++ {
		pageNo := int64(rng.Intn(w.NumPages))
		start := time.Now()
		buf, err := mgr.GetThisPage(fd, pageNo)
		if err != nil {
			return Row{}, err
		}

		write := rng.Intn(100) >= w.ReadPct
		if write {
			buf[0]++
		}
		if err := mgr.UnfixPage(fd, pageNo, write); err != nil {
			return Row{}, err
		}
		hist.Record(time.Since(start))
	}

	numPages, err := mgr.NumPages(fd)
	if err != nil {
		return Row{}, err
	}

	return Row{
		Dataset:  w.Dataset,
		ReadPct:  w.ReadPct,
		WritePct: 100 - w.ReadPct,
		NumPages: numPages,
		Stats:    mgr.Pool().Statistics(),
		Latency:  hist.Stats(),
	}, nil
}
