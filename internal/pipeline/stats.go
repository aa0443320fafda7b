package pipeline

import "sync/atomic"

// Stats counts pipeline activity. Counters are updated by the pipeline
// goroutine and may be read concurrently.
type Stats struct {
	Frames          atomic.Int64
	Segments        atomic.Int64
	Failures        atomic.Int64
	Partials        atomic.Int64
	Finals          atomic.Int64
	Errors          atomic.Int64
	DroppedPartials atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Frames          int64
	Segments        int64
	Failures        int64
	Partials        int64
	Finals          int64
	Errors          int64
	DroppedPartials int64
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Frames:          s.Frames.Load(),
		Segments:        s.Segments.Load(),
		Failures:        s.Failures.Load(),
		Partials:        s.Partials.Load(),
		Finals:          s.Finals.Load(),
		Errors:          s.Errors.Load(),
		DroppedPartials: s.DroppedPartials.Load(),
	}
}

func (s *Stats) count(ev Event) {
	switch ev.Kind {
	case EventPartial:
		s.Partials.Add(1)
	case EventFinal:
		s.Finals.Add(1)
	case EventError:
		s.Errors.Add(1)
	}
}
