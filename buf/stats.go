package buf

import "fmt"

// Stats holds the pool's aggregate access counters. The engine is
// single-threaded by design, so these are plain counters rather than
// atomics.
type Stats struct {
	LogicalReads  int64
	LogicalWrites int64
	PhysicalReads int64
	PhysicalWrites int64
	BufferHits    int64
	BufferMisses  int64
}

// HitRatio returns hits/(hits+misses), or 0 when no gets have occurred.
func (s Stats) HitRatio() float64 {
	total := s.BufferHits + s.BufferMisses
	if total == 0 {
		return 0
	}
	return float64(s.BufferHits) / float64(total)
}

// Report renders one labeled line per counter, plus the derived hit ratio.
func (s Stats) Report() string {
	return fmt.Sprintf(
		"logical reads:  %d\n"+
			"logical writes: %d\n"+
			"physical reads: %d\n"+
			"physical writes:%d\n"+
			"buffer hits:    %d\n"+
			"buffer misses:  %d\n"+
			"hit ratio:      %.4f\n",
		s.LogicalReads, s.LogicalWrites, s.PhysicalReads, s.PhysicalWrites,
		s.BufferHits, s.BufferMisses, s.HitRatio(),
	)
}
