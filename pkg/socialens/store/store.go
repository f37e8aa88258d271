// Package store persists run snapshots and the synthesized comment→video
// mapping. Snapshots are write-once: every run adds a new one.
package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/socialens/pkg/socialens/analytics"
	"github.com/cognicore/socialens/pkg/socialens/link"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/sentiment"
	"github.com/cognicore/socialens/pkg/socialens/stoplist"
	"github.com/cognicore/socialens/pkg/socialens/topics"
)

// Store is implemented by every backend. It satisfies link.MappingStore.
type Store interface {
	Close() error

	// Snapshots
	SaveSnapshot(ctx context.Context, s Snapshot) error
	GetSnapshot(ctx context.Context, id string) (Snapshot, error)
	LatestSnapshot(ctx context.Context) (Snapshot, bool, error)
	ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error)

	// Mapping
	LoadMapping(ctx context.Context) ([]records.Mapping, bool, error)
	SaveMapping(ctx context.Context, m []records.Mapping) error
}

var _ link.MappingStore = Store(nil)

// Snapshot is the immutable output of one pipeline run.
type Snapshot struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Records   []link.JoinedRecord `json:"records"`
	Topics    topics.Result       `json:"topics"`
	Reconcile []topics.Match      `json:"reconcile"`
	Report    Report              `json:"report"`
}

// Info summarizes the snapshot for listings.
func (s Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Comments:  s.Report.Join.Comments,
		Joined:    s.Report.Join.Joined,
		Topics:    len(s.Topics.All()),
	}
}

// SnapshotInfo is a snapshot header.
type SnapshotInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Comments  int       `json:"comments"`
	Joined    int       `json:"joined"`
	Topics    int       `json:"topics"`
}

// Report carries the diagnostics of a run.
type Report struct {
	Join              link.JoinReport                            `json:"join"`
	Sentiment         map[sentiment.Label]int                    `json:"sentiment"`
	FailedChunks      int                                        `json:"failed_chunks"`
	EmbeddingFailures int                                        `json:"embedding_failures"`
	StopSuggestions   []stoplist.Candidate                       `json:"stop_suggestions"`
	TopTokens         []analytics.TokenCount                     `json:"top_tokens"`
	Timeline          []analytics.Day                            `json:"timeline"`
	Influence         map[link.Influence]map[sentiment.Label]int `json:"influence"`
	Engagement        []analytics.Engagement                     `json:"engagement"`
	SeedCoverage      map[topics.Method][]string                 `json:"seed_coverage"`
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a new ULID. IDs sort by creation time.
func NewRunID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Now(), idEntropy).String()
}
