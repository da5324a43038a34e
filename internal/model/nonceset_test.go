package model

import "testing"

func TestSubmittedNonceSetRejectsDuplicates(t *testing.T) {
	s := NewSubmittedNonceSet()

	if s.CheckAndAdd("job-1", 100) {
		t.Fatalf("first sighting of a nonce must not be reported as a duplicate")
	}
	if !s.CheckAndAdd("job-1", 100) {
		t.Fatalf("second sighting of the same nonce in the same job must be a duplicate")
	}
}

func TestSubmittedNonceSetClearsOnJobChange(t *testing.T) {
	s := NewSubmittedNonceSet()
	s.CheckAndAdd("job-1", 100)

	if s.CheckAndAdd("job-2", 100) {
		t.Fatalf("a nonce from a previous job must not be treated as a duplicate under a new job")
	}
	if !s.CheckAndAdd("job-2", 100) {
		t.Fatalf("the nonce is now a duplicate within job-2")
	}
}

func TestSubmittedNonceSetOverflowClearsInsteadOfGrowingUnbounded(t *testing.T) {
	s := NewSubmittedNonceSet()
	for i := uint64(0); i < maxSubmittedNonces; i++ {
		if s.CheckAndAdd("job-1", i) {
			t.Fatalf("nonce %d unexpectedly reported as duplicate while filling the set", i)
		}
	}
	// The set is now full; the next add clears it before inserting, so a
	// nonce seen earlier in this same job is no longer remembered.
	if s.CheckAndAdd("job-1", 0) {
		t.Fatalf("overflow must clear the set rather than reject nonce 0 as a duplicate")
	}
}

func TestSubmittedNonceSetClear(t *testing.T) {
	s := NewSubmittedNonceSet()
	s.CheckAndAdd("job-1", 7)
	s.Clear()
	if s.CheckAndAdd("job-1", 7) {
		t.Fatalf("Clear must drop all remembered nonces")
	}
}
