package sink

import "time"

// rotationEvaluator owns the three independent rotation predicates from
// spec §4.3 and the timers they read. lastRotate/nextScheduledRotate are
// *time.Time (nil = unset) per the §9 redesign note against zero-valued
// comparisons.
type rotationEvaluator struct {
	flushSize                int
	rotateIntervalMs         int64
	rotateScheduleIntervalMs int64
	location                 *time.Location

	lastRotate          *time.Time
	nextScheduledRotate *time.Time
}

func newRotationEvaluator(cfg Config, loc *time.Location) *rotationEvaluator {
	return &rotationEvaluator{
		flushSize:                cfg.FlushSize,
		rotateIntervalMs:         cfg.RotateIntervalMs,
		rotateScheduleIntervalMs: cfg.RotateScheduleIntervalMs,
		location:                 loc,
	}
}

// seed initializes lastRotate on first write. A wall-clock-based
// partitioner seeds to "now" (the writer is considered to start its first
// epoch at construction-equivalent time); a record-time based one seeds
// to the first record's own timestamp (spec §4.3).
func (r *rotationEvaluator) seed(now time.Time, wallClock bool, firstRecordMs int64) {
	if r.lastRotate != nil {
		return
	}
	var t time.Time
	if wallClock {
		t = now
	} else {
		t = time.UnixMilli(firstRecordMs)
	}
	r.lastRotate = &t
}

// due evaluates the three predicates OR'd together. currentMs is either
// wall-clock now or the current record's extracted timestamp, depending
// on whether the configured partitioner is wall-clock based (spec §4.3).
func (r *rotationEvaluator) due(now time.Time, currentMs int64, recordCounter int) (bool, string) {
	if r.flushSize > 0 && recordCounter >= r.flushSize {
		return true, "size"
	}

	if r.rotateIntervalMs > 0 && r.lastRotate != nil {
		if currentMs-r.lastRotate.UnixMilli() >= r.rotateIntervalMs {
			return true, "periodic"
		}
	}

	if r.rotateScheduleIntervalMs > 0 && r.nextScheduledRotate != nil {
		if !now.Before(*r.nextScheduledRotate) {
			return true, "scheduled"
		}
	}

	return false, ""
}

// refresh recomputes the timers on entry to SHOULD_ROTATE and on tail
// flush (spec §4.3: "Timers are refreshed only on entry to SHOULD_ROTATE
// and on tail flush").
func (r *rotationEvaluator) refresh(now time.Time, currentMs int64) {
	t := time.UnixMilli(currentMs)
	r.lastRotate = &t

	if r.rotateScheduleIntervalMs > 0 {
		next := alignForward(now, r.rotateScheduleIntervalMs, r.location)
		r.nextScheduledRotate = &next
	}
}

// ensureScheduled computes the initial nextScheduledRotate if scheduled
// rotation is enabled and it hasn't been computed yet.
func (r *rotationEvaluator) ensureScheduled(now time.Time) {
	if r.rotateScheduleIntervalMs <= 0 || r.nextScheduledRotate != nil {
		return
	}
	next := alignForward(now, r.rotateScheduleIntervalMs, r.location)
	r.nextScheduledRotate = &next
}

// alignForward returns the next instant, strictly after the start of
// now's calendar day in loc, that is a multiple of intervalMs away from
// that start-of-day anchor and is strictly after now (a now that falls
// exactly on a boundary yields the following one). Scheduled rotation times are
// therefore fixed within each calendar day rather than drifting with
// process start time (spec §4.3).
func alignForward(now time.Time, intervalMs int64, loc *time.Location) time.Time {
	local := now.In(loc)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	interval := time.Duration(intervalMs) * time.Millisecond
	elapsedMs := local.Sub(startOfDay).Milliseconds()
	intervalsPassed := elapsedMs / intervalMs
	next := startOfDay.Add(time.Duration(intervalsPassed+1) * interval)

	// guard against the rare case where now lands exactly on a boundary
	// and integer division put us behind
	for !next.After(local) {
		next = next.Add(interval)
	}
	return next
}
