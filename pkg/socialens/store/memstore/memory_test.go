package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/store"
)

func TestSnapshotsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, err := s.LatestSnapshot(ctx); err != nil || ok {
		t.Fatalf("expected no snapshot, got ok=%v err=%v", ok, err)
	}

	for _, id := range []string{"01A", "01C", "01B"} {
		if err := s.SaveSnapshot(ctx, store.Snapshot{ID: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	latest, ok, err := s.LatestSnapshot(ctx)
	if err != nil || !ok || latest.ID != "01C" {
		t.Fatalf("latest = %q ok=%v err=%v", latest.ID, ok, err)
	}

	list, err := s.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "01C" || list[1].ID != "01B" {
		t.Fatalf("unexpected listing %+v", list)
	}
}

func TestSnapshotsAreWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SaveSnapshot(ctx, store.Snapshot{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSnapshot(ctx, store.Snapshot{ID: "x"}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := s.SaveSnapshot(ctx, store.Snapshot{}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty id, got %v", err)
	}
	if _, err := s.GetSnapshot(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMappingRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, _ := s.LoadMapping(ctx); ok {
		t.Fatal("fresh store should have no mapping")
	}
	if err := s.SaveMapping(ctx, nil); err != nil {
		t.Fatal(err)
	}
	m, ok, err := s.LoadMapping(ctx)
	if err != nil || !ok || len(m) != 0 {
		t.Fatalf("empty mapping: m=%v ok=%v err=%v", m, ok, err)
	}

	want := []records.Mapping{{CommentID: "c1", VideoID: "v1"}, {CommentID: "c2", VideoID: "v2"}}
	if err := s.SaveMapping(ctx, want); err != nil {
		t.Fatal(err)
	}
	want[0].VideoID = "mutated"
	got, _, _ := s.LoadMapping(ctx)
	if len(got) != 2 || got[0].VideoID != "v1" || got[1].CommentID != "c2" {
		t.Fatalf("unexpected mapping %+v", got)
	}
}
