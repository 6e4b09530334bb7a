package observability

import (
	"testing"
	"time"
)

func TestTurnWindowSnapshotStats(t *testing.T) {
	w := NewTurnWindow(8)
	for _, ms := range []int{2, 4, 6, 8} {
		w.Observe("pick_time", time.Duration(ms)*time.Millisecond)
	}
	w.Observe("offer", 3*time.Millisecond)

	snap := w.Snapshot()
	if len(snap.Stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(snap.Stages))
	}
	// Sorted by stage name: offer first.
	if snap.Stages[0].Stage != "offer" || snap.Stages[1].Stage != "pick_time" {
		t.Fatalf("stage order = %q, %q", snap.Stages[0].Stage, snap.Stages[1].Stage)
	}

	pick := snap.Stages[1]
	if pick.Samples != 4 {
		t.Fatalf("samples = %d, want 4", pick.Samples)
	}
	if pick.LastMS != 8 {
		t.Fatalf("LastMS = %v, want 8", pick.LastMS)
	}
	if pick.AvgMS != 5 {
		t.Fatalf("AvgMS = %v, want 5", pick.AvgMS)
	}
	if pick.P50MS != 5 {
		t.Fatalf("P50MS = %v, want 5", pick.P50MS)
	}
}

func TestTurnWindowWrapsAround(t *testing.T) {
	w := NewTurnWindow(4)
	for i := 1; i <= 10; i++ {
		w.Observe("intro", time.Duration(i)*time.Millisecond)
	}

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("stages = %d, want 1", len(snap.Stages))
	}
	got := snap.Stages[0]
	if got.Samples != 4 {
		t.Fatalf("samples = %d, want window size", got.Samples)
	}
	if got.LastMS != 10 {
		t.Fatalf("LastMS = %v, want newest sample", got.LastMS)
	}
}

func TestTurnWindowIgnoresBlankStage(t *testing.T) {
	w := NewTurnWindow(4)
	w.Observe("", time.Millisecond)
	if got := len(w.Snapshot().Stages); got != 0 {
		t.Fatalf("stages = %d, want 0", got)
	}
}
