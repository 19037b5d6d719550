package state

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestStore_PaintAndSnapshotClone(t *testing.T) {
	s := NewStore("waiting")

	before := time.Now()
	s.PaintRegion("waiting", Region{Topic: "waiting_orders", Items: []Item{{ID: 1}, {ID: 2}}})
	s.RecordLoad(nil)

	snap := s.Snapshot()
	r, ok := snap.Regions["waiting"]
	if !ok || len(r.Items) != 2 || r.Items[0].ID != 1 {
		t.Fatalf("region = %#v, want 2 items", r)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.Paints != 1 {
		t.Fatalf("Paints = %d, want 1", snap.Paints)
	}

	// Returned snapshot should be independent of the stored one.
	r.Items[0].ID = 999
	again, _ := s.Region("waiting")
	if again.Items[0].ID != 1 {
		t.Fatalf("Snapshot should clone items; got id %d want 1", again.Items[0].ID)
	}
}

func TestStore_IgnoresUndeclaredRegions(t *testing.T) {
	s := NewStore("waiting")
	if s.HasRegion("ready") {
		t.Fatal("HasRegion(ready) = true for undeclared region")
	}
	s.PaintRegion("ready", Region{Items: []Item{{ID: 1}}})
	if _, ok := s.Region("ready"); ok {
		t.Fatal("undeclared region was painted")
	}

	s.Declare("ready")
	s.PaintRegion("ready", Region{Items: []Item{{ID: 1}}})
	if _, ok := s.Region("ready"); !ok {
		t.Fatal("declared region was not painted")
	}
}

func TestStore_RecordLoadErrorKeepsPaintedData(t *testing.T) {
	s := NewStore("ready")
	s.PaintRegion("ready", Region{Items: []Item{{ID: 4}}})
	s.RecordLoad(nil)
	prev := s.Snapshot()

	origErr := errors.New("boom")
	s.RecordLoad(origErr)
	s.RecordLoad(origErr)

	snap := s.Snapshot()
	if !reflect.DeepEqual(snap.Regions, prev.Regions) {
		t.Fatalf("regions changed on error: %#v", snap.Regions)
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError = %v, want wrapping %v", snap.LastError, origErr)
	}
	if !snap.IsOffline() {
		t.Fatal("two failures should report offline")
	}

	s.MarkMaxRetries()
	if !s.Snapshot().MaxRetriesReached {
		t.Fatal("MaxRetriesReached not set")
	}
	s.RecordLoad(nil)
	snap = s.Snapshot()
	if snap.IsOffline() || snap.MaxRetriesReached || snap.LastError != nil {
		t.Fatalf("success did not clear failure state: %#v", snap)
	}
}

func TestSnapshot_IsOffline(t *testing.T) {
	tests := []struct {
		failures int
		want     bool
	}{
		{0, false},
		{1, false},
		{2, true},
		{5, true},
	}
	for _, tt := range tests {
		if got := (Snapshot{ConsecutiveFailures: tt.failures}).IsOffline(); got != tt.want {
			t.Errorf("IsOffline() with %d failures = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestStore_OnChange(t *testing.T) {
	s := NewStore("waiting")
	calls := 0
	s.OnChange(func() { calls++ })
	s.PaintRegion("waiting", Region{Empty: true})
	s.PaintBadges(Badges{Waiting: 1})
	s.SetConnection(Connection{State: "connected"})
	if calls != 3 {
		t.Fatalf("OnChange calls = %d, want 3", calls)
	}
}
