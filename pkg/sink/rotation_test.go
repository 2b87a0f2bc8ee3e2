package sink

import (
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FlushSize = 0
	return cfg
}

func TestRotationEvaluator_SizePredicate(t *testing.T) {
	cfg := testConfig()
	cfg.FlushSize = 3
	r := newRotationEvaluator(cfg, time.UTC)

	if due, _ := r.due(time.Now(), 0, 2); due {
		t.Fatalf("due() fired before flushSize reached")
	}
	due, reason := r.due(time.Now(), 0, 3)
	if !due || reason != "size" {
		t.Fatalf("due() = (%v, %q), want (true, \"size\")", due, reason)
	}
}

func TestRotationEvaluator_PeriodicPredicate(t *testing.T) {
	cfg := testConfig()
	cfg.RotateIntervalMs = 60_000
	r := newRotationEvaluator(cfg, time.UTC)

	now := time.Now()
	r.seed(now, false, now.UnixMilli())

	if due, _ := r.due(now, now.UnixMilli()+59_000, 0); due {
		t.Fatalf("due() fired before rotateIntervalMs elapsed")
	}
	due, reason := r.due(now, now.UnixMilli()+60_000, 0)
	if !due || reason != "periodic" {
		t.Fatalf("due() = (%v, %q), want (true, \"periodic\")", due, reason)
	}
}

func TestRotationEvaluator_PeriodicPredicate_UnsetUntilSeeded(t *testing.T) {
	cfg := testConfig()
	cfg.RotateIntervalMs = 60_000
	r := newRotationEvaluator(cfg, time.UTC)

	if due, _ := r.due(time.Now(), time.Now().UnixMilli()+120_000, 0); due {
		t.Fatalf("periodic predicate must not fire before seed() establishes lastRotate")
	}
}

func TestRotationEvaluator_Seed_WallClockUsesNow(t *testing.T) {
	cfg := testConfig()
	r := newRotationEvaluator(cfg, time.UTC)

	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r.seed(now, true, 0)
	if !r.lastRotate.Equal(now) {
		t.Fatalf("seed(wallClock=true) lastRotate = %v, want %v", r.lastRotate, now)
	}
}

func TestRotationEvaluator_Seed_RecordTimeUsesFirstRecordMs(t *testing.T) {
	cfg := testConfig()
	r := newRotationEvaluator(cfg, time.UTC)

	recordTime := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	r.seed(time.Now(), false, recordTime.UnixMilli())
	if !r.lastRotate.Equal(recordTime) {
		t.Fatalf("seed(wallClock=false) lastRotate = %v, want %v", r.lastRotate, recordTime)
	}
}

func TestRotationEvaluator_Seed_OnlyAppliesOnce(t *testing.T) {
	cfg := testConfig()
	r := newRotationEvaluator(cfg, time.UTC)

	first := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	second := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	r.seed(first, true, 0)
	r.seed(second, true, 0)
	if !r.lastRotate.Equal(first) {
		t.Fatalf("second seed() call must be a no-op, got lastRotate = %v", r.lastRotate)
	}
}

// Scenario 5 (spec.md §8): rotateScheduleIntervalMs=3,600,000 (hourly),
// timezone UTC, now=2024-01-01T10:17:00Z. Expect the next scheduled
// rotation at 2024-01-01T11:00:00Z.
func TestAlignForward_HourlyScheduleFromMidBatch(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 17, 0, 0, time.UTC)
	next := alignForward(now, 3_600_000, time.UTC)

	want := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("alignForward() = %v, want %v", next, want)
	}
}

func TestAlignForward_ExactlyOnBoundary(t *testing.T) {
	now := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	next := alignForward(now, 3_600_000, time.UTC)

	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("alignForward() on exact boundary = %v, want %v", next, want)
	}
}

func TestAlignForward_CrossesMidnight(t *testing.T) {
	now := time.Date(2024, 1, 1, 23, 45, 0, 0, time.UTC)
	next := alignForward(now, 3_600_000, time.UTC)

	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("alignForward() across midnight = %v, want %v", next, want)
	}
}

func TestRotationEvaluator_EnsureScheduled_IsIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.RotateScheduleIntervalMs = 3_600_000
	r := newRotationEvaluator(cfg, time.UTC)

	now := time.Date(2024, 1, 1, 10, 17, 0, 0, time.UTC)
	r.ensureScheduled(now)
	first := *r.nextScheduledRotate

	// a second ensureScheduled call before the scheduled instant is reached
	// must not disturb the already-computed value.
	r.ensureScheduled(now.Add(time.Minute))
	if !r.nextScheduledRotate.Equal(first) {
		t.Fatalf("ensureScheduled() recomputed an already-set nextScheduledRotate")
	}
}

func TestRotationEvaluator_ScheduledPredicate(t *testing.T) {
	cfg := testConfig()
	cfg.RotateScheduleIntervalMs = 3_600_000
	r := newRotationEvaluator(cfg, time.UTC)

	now := time.Date(2024, 1, 1, 10, 17, 0, 0, time.UTC)
	r.ensureScheduled(now)

	beforeDue := now.Add(30 * time.Minute)
	if due, _ := r.due(beforeDue, beforeDue.UnixMilli(), 0); due {
		t.Fatalf("scheduled predicate fired before the aligned instant")
	}

	atDue := *r.nextScheduledRotate
	due, reason := r.due(atDue, atDue.UnixMilli(), 0)
	if !due || reason != "scheduled" {
		t.Fatalf("due() at scheduled instant = (%v, %q), want (true, \"scheduled\")", due, reason)
	}
}

func TestRotationEvaluator_Refresh_RecomputesBothTimers(t *testing.T) {
	cfg := testConfig()
	cfg.RotateScheduleIntervalMs = 3_600_000
	r := newRotationEvaluator(cfg, time.UTC)

	now := time.Date(2024, 1, 1, 10, 17, 0, 0, time.UTC)
	r.refresh(now, now.UnixMilli())

	if !r.lastRotate.Equal(now) {
		t.Fatalf("refresh() lastRotate = %v, want %v", r.lastRotate, now)
	}
	want := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	if !r.nextScheduledRotate.Equal(want) {
		t.Fatalf("refresh() nextScheduledRotate = %v, want %v", r.nextScheduledRotate, want)
	}
}
