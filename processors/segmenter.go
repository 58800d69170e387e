package processors

import (
	"sort"

	"videoEventDetect/core"
)

// SegmenterConfig is the sensitivity half of event segmentation.
type SegmenterConfig struct {
	// Threshold gates which curve points count as a match.
	Threshold float64
	// MinEventDuration discards candidate spans shorter than this, which
	// suppresses single-sample spikes.
	MinEventDuration float64
	// MergeGap joins two above-threshold spans whose gap is at most this,
	// which absorbs brief dips inside an otherwise continuous match.
	MergeGap float64
}

// SegmentEvents converts a fused confidence curve into discrete,
// non-overlapping events. Single pass over the sorted curve: accumulate
// maximal runs of above-threshold points, extend the open span greedily
// left-to-right while gaps stay within MergeGap, drop spans shorter than
// MinEventDuration, and report each survivor with its peak score. An empty
// curve or one with no point at threshold yields an empty list, not an error.
func SegmentEvents(curve core.SimilarityCurve, cfg SegmenterConfig) []core.Event {
	points := make(core.SimilarityCurve, len(curve))
	copy(points, curve)
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	type span struct {
		start, end, peak float64
	}
	events := make([]core.Event, 0)
	var open *span

	emit := func(sp *span) {
		if sp.end-sp.start < cfg.MinEventDuration {
			return
		}
		events = append(events, core.Event{
			Start:      sp.start,
			End:        sp.end,
			Confidence: sp.peak,
			Type:       core.EventTypeMatch,
		})
	}

	// dipped records whether a below-threshold point closed the current run;
	// only then does the gap between runs get measured against MergeGap.
	dipped := false
	for _, pt := range points {
		if pt.Score < cfg.Threshold {
			if open != nil {
				dipped = true
			}
			continue
		}
		if open == nil {
			open = &span{start: pt.Timestamp, end: pt.Timestamp, peak: pt.Score}
			continue
		}
		if !dipped || pt.Timestamp-open.end <= cfg.MergeGap {
			open.end = pt.Timestamp
			if pt.Score > open.peak {
				open.peak = pt.Score
			}
		} else {
			emit(open)
			open = &span{start: pt.Timestamp, end: pt.Timestamp, peak: pt.Score}
		}
		dipped = false
	}
	if open != nil {
		emit(open)
	}

	return checkEventInvariants(events)
}

// checkEventInvariants enforces the output contract: events sorted ascending
// by start, pairwise non-overlapping, each with end > start. Overlapping
// neighbors are merged rather than emitted.
func checkEventInvariants(events []core.Event) []core.Event {
	sort.Slice(events, func(i, j int) bool { return events[i].Start < events[j].Start })
	out := make([]core.Event, 0, len(events))
	for _, ev := range events {
		if ev.End <= ev.Start {
			continue
		}
		if n := len(out); n > 0 && ev.Start < out[n-1].End {
			if ev.End > out[n-1].End {
				out[n-1].End = ev.End
			}
			if ev.Confidence > out[n-1].Confidence {
				out[n-1].Confidence = ev.Confidence
			}
			continue
		}
		out = append(out, ev)
	}
	return out
}
