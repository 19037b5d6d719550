package badge

import (
	"testing"

	"github.com/betweencoffee/baristaboard/internal/datamgr"
	"github.com/betweencoffee/baristaboard/internal/eshop"
	"github.com/betweencoffee/baristaboard/internal/state"
)

type countingPainter struct {
	paints []state.Badges
}

func (p *countingPainter) PaintBadges(b state.Badges) {
	p.paints = append(p.paints, b)
}

type stubSource struct {
	topic    datamgr.Topic
	listener datamgr.Listener
	removed  bool
}

func (s *stubSource) Register(topic datamgr.Topic, l datamgr.Listener, immediate bool) func() {
	s.topic = topic
	s.listener = l
	return func() { s.removed = true }
}

func update(w, p, r, c int) datamgr.Update {
	return datamgr.Update{
		Topic: datamgr.TopicBadgeSummary,
		Snapshot: eshop.Snapshot{BadgeSummary: eshop.BadgeSummary{
			Waiting: w, Preparing: p, Ready: r, Completed: c,
		}},
	}
}

func TestIndicator_PaintsOnlyOnChange(t *testing.T) {
	painter := &countingPainter{}
	ind := New(painter)

	steps := []struct {
		name      string
		u         datamgr.Update
		wantPaint int
	}{
		{"first load paints zeros", update(0, 0, 0, 0), 1},
		{"same counts skip", update(0, 0, 0, 0), 1},
		{"new waiting order", update(1, 0, 0, 0), 2},
		{"unchanged again", update(1, 0, 0, 0), 2},
		{"moved to preparing", update(0, 1, 0, 0), 3},
	}
	for _, step := range steps {
		if err := ind.OnSnapshot(step.u); err != nil {
			t.Fatalf("%s: OnSnapshot: %v", step.name, err)
		}
		if len(painter.paints) != step.wantPaint {
			t.Fatalf("%s: paints = %d, want %d", step.name, len(painter.paints), step.wantPaint)
		}
	}
	if got := ind.Counts(); got != (state.Badges{Preparing: 1}) {
		t.Fatalf("Counts = %+v", got)
	}
}

func TestIndicator_RegistersForBadgeSummary(t *testing.T) {
	src := &stubSource{}
	ind := New(&countingPainter{})
	ind.Start(src)

	if src.topic != datamgr.TopicBadgeSummary || src.listener != ind {
		t.Fatalf("registered %q with %v", src.topic, src.listener)
	}
	ind.Close()
	if !src.removed {
		t.Fatal("Close did not unregister")
	}
}

func TestIndicator_PaintsIntoStore(t *testing.T) {
	store := state.NewStore()
	ind := New(store)
	_ = ind.OnSnapshot(update(1, 2, 3, 4))

	snap := store.Snapshot()
	if !snap.HasBadges || snap.Badges != (state.Badges{Waiting: 1, Preparing: 2, Ready: 3, Completed: 4}) {
		t.Fatalf("store badges = %+v (has=%v)", snap.Badges, snap.HasBadges)
	}
}
