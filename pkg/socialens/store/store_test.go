package store

import (
	"testing"

	"github.com/cognicore/socialens/pkg/socialens/link"
	"github.com/cognicore/socialens/pkg/socialens/topics"
)

func TestNewRunIDSortsByCreation(t *testing.T) {
	prev := NewRunID()
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if len(id) != 26 {
			t.Fatalf("unexpected id length %d: %q", len(id), id)
		}
		if id <= prev {
			t.Fatalf("id %q not after %q", id, prev)
		}
		prev = id
	}
}

func TestSnapshotInfo(t *testing.T) {
	snap := Snapshot{
		ID:     "01",
		Topics: topics.Result{TFIDF: []topics.Topic{{}, {}}, NMF: []topics.Topic{{}}},
		Report: Report{Join: link.JoinReport{Comments: 5, Joined: 3}},
	}
	info := snap.Info()
	if info.Comments != 5 || info.Joined != 3 || info.Topics != 3 {
		t.Fatalf("unexpected info %+v", info)
	}
}
