package model

import "testing"

func TestHealthTrackerStartsHealthy(t *testing.T) {
	tr := NewHealthTracker()
	if got := tr.Snapshot().Status; got != Healthy {
		t.Fatalf("new tracker status = %s, want healthy", got)
	}
}

func TestHealthTrackerOptimisticBelowMinimumSamples(t *testing.T) {
	tr := NewHealthTracker()
	for i := 0; i < minSolutionsForValidity-1; i++ {
		tr.RecordInvalid()
	}
	snap := tr.Snapshot()
	if snap.Validity() != 1.0 {
		t.Fatalf("validity below the minimum sample count must default to 1.0, got %f", snap.Validity())
	}
	if snap.Status != Healthy {
		t.Fatalf("status with too few samples must stay healthy, got %s", snap.Status)
	}
}

func TestHealthTrackerDerivesFailedFromLowValidity(t *testing.T) {
	tr := NewHealthTracker()
	for i := 0; i < 10; i++ {
		tr.RecordInvalid()
	}
	if got := tr.Snapshot().Status; got != Failed {
		t.Fatalf("all-invalid solutions should derive Failed, got %s", got)
	}
	if !tr.IsFailed() {
		t.Fatalf("IsFailed() must agree with Snapshot().Status")
	}
}

func TestHealthTrackerDerivesFailedFromHardwareErrors(t *testing.T) {
	tr := NewHealthTracker()
	for i := 0; i < 51; i++ {
		tr.RecordHardwareError()
	}
	if got := tr.Snapshot().Status; got != Failed {
		t.Fatalf("more than 50 hardware errors should derive Failed, got %s", got)
	}
}

func TestHealthTrackerDegradedThenRecovers(t *testing.T) {
	tr := NewHealthTracker()
	for i := 0; i < 10; i++ {
		tr.RecordValid(1000)
	}
	tr.RecordInvalid() // 1/11 invalid, validity ~0.909 -> degraded band
	if got := tr.Snapshot().Status; got != Degraded {
		t.Fatalf("status = %s, want degraded", got)
	}

	for i := 0; i < 50; i++ {
		tr.RecordValid(1000)
	}
	if got := tr.Snapshot().Status; got != Healthy {
		t.Fatalf("status after many valid solutions = %s, want healthy", got)
	}
}

func TestHealthTrackerPeakRateNeverDecreases(t *testing.T) {
	tr := NewHealthTracker()
	tr.UpdateRate(100)
	tr.UpdateRate(50)
	snap := tr.Snapshot()
	if snap.PeakRate != 100 {
		t.Fatalf("PeakRate = %f, want 100 (must not drop when current rate falls)", snap.PeakRate)
	}
	if snap.CurrentRate != 50 {
		t.Fatalf("CurrentRate = %f, want 50", snap.CurrentRate)
	}
}

func TestHealthStatusString(t *testing.T) {
	cases := map[HealthStatus]string{
		Healthy:   "healthy",
		Degraded:  "degraded",
		Unhealthy: "unhealthy",
		Failed:    "failed",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", status, got, want)
		}
	}
}
