package link

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/sentiment"
)

// Reason explains why a comment was excluded from the join.
type Reason string

const (
	ReasonNoMapping          Reason = "no_mapping"
	ReasonUnknownVideo       Reason = "unknown_video"
	ReasonNoCreator          Reason = "no_creator"
	ReasonMalformedNumber    Reason = "malformed_number"
	ReasonMalformedTimestamp Reason = "malformed_timestamp"
	// ReasonMalformedRecord counts comments dropped while loading, before
	// they could reach the join.
	ReasonMalformedRecord Reason = "malformed_record"
)

// Reasons lists every exclusion reason in report order.
var Reasons = []Reason{
	ReasonNoMapping,
	ReasonUnknownVideo,
	ReasonNoCreator,
	ReasonMalformedNumber,
	ReasonMalformedTimestamp,
	ReasonMalformedRecord,
}

// CreatorKey selects which record carries the creator's user id.
type CreatorKey string

const (
	CreatorFromVideo   CreatorKey = "video"
	CreatorFromComment CreatorKey = "comment"
)

// Metrics are the coerced numeric fields of a joined record.
type Metrics struct {
	SubCommentCount int64   `json:"sub_comment_count"`
	LikedCount      int64   `json:"liked_count"`
	PlayCount       int64   `json:"video_play_count"`
	CommentCount    int64   `json:"video_comment"`
	DanmakuCount    int64   `json:"video_danmaku"`
	Fans            int64   `json:"total_fans"`
	TotalLiked      int64   `json:"total_liked"`
	SentimentScore  float64 `json:"sentiment_score"`
}

// JoinedRecord is one comment with its video, creator and verdict.
type JoinedRecord struct {
	Comment     records.Comment   `json:"comment"`
	Video       records.Video     `json:"video"`
	Creator     records.Creator   `json:"creator"`
	Verdict     sentiment.Verdict `json:"sentiment"`
	Metrics     Metrics           `json:"metrics"`
	Influence   Influence         `json:"influence"`
	CommentDate string            `json:"comment_date"`
	VideoDate   string            `json:"video_date"`
	// Last-modified dates are empty when the source field is absent.
	CommentModified string `json:"comment_last_modify,omitempty"`
	CreatorModified string `json:"creator_last_modify,omitempty"`
	MappingSource   Source `json:"mapping_source"`
}

// JoinReport accounts for every input comment.
type JoinReport struct {
	Comments         int            `json:"comments"`
	Joined           int            `json:"joined"`
	Excluded         map[Reason]int `json:"excluded"`
	MappingConflicts int            `json:"mapping_conflicts"`
	MappingSource    Source         `json:"mapping_source"`
}

// TotalExcluded sums the exclusions over all reasons.
func (r JoinReport) TotalExcluded() int {
	n := 0
	for _, c := range r.Excluded {
		n += c
	}
	return n
}

// Balanced reports whether joined + excluded equals the input count.
func (r JoinReport) Balanced() bool {
	return r.Joined+r.TotalExcluded() == r.Comments
}

// Input is the data to join. Verdicts, when present, is parallel to
// Comments. Skipped is the number of comments dropped as malformed while
// loading; they count as input under ReasonMalformedRecord.
type Input struct {
	Comments      []records.Comment
	Skipped       int
	Mappings      []records.Mapping
	MappingSource Source
	Videos        []records.Video
	Creators      []records.Creator
	Verdicts      []sentiment.Verdict
}

// Options configures a Linker.
type Options struct {
	CreatorKey CreatorKey
	Threshold  Threshold
	Clock      records.Clock
	Logger     *slog.Logger
}

// Linker performs joins with fixed options.
type Linker struct {
	opts   Options
	logger *slog.Logger
}

// NewLinker validates options and creates a Linker.
func NewLinker(opts Options) (*Linker, error) {
	if opts.CreatorKey == "" {
		opts.CreatorKey = CreatorFromVideo
	}
	if opts.CreatorKey != CreatorFromVideo && opts.CreatorKey != CreatorFromComment {
		return nil, fmt.Errorf("creator key %q: %w", opts.CreatorKey, internalerr.ErrInvalidConfig)
	}
	if opts.Threshold == (Threshold{}) {
		opts.Threshold = DefaultThreshold()
	}
	if err := opts.Threshold.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{opts: opts, logger: logger}, nil
}

// JoinResult is the join output plus its accounting.
type JoinResult struct {
	Records []JoinedRecord
	Report  JoinReport
}

// Join combines comments → mapping → videos → creators. Each comment is
// either joined or counted under exactly one Reason; nothing is imputed.
func (l *Linker) Join(in Input) JoinResult {
	report := JoinReport{
		Comments:      len(in.Comments) + in.Skipped,
		Excluded:      make(map[Reason]int, len(Reasons)),
		MappingSource: in.MappingSource,
	}
	for _, r := range Reasons {
		report.Excluded[r] = 0
	}
	report.Excluded[ReasonMalformedRecord] = in.Skipped

	mapping := make(map[records.ID]records.ID, len(in.Mappings))
	for _, m := range in.Mappings {
		if prev, ok := mapping[m.CommentID]; ok {
			if prev != m.VideoID {
				report.MappingConflicts++
			}
			continue
		}
		mapping[m.CommentID] = m.VideoID
	}
	videos := indexBy(in.Videos, func(v records.Video) records.ID { return v.VideoID })
	creators := indexBy(in.Creators, func(c records.Creator) records.ID { return c.UserID })

	var out []JoinedRecord
	for i, c := range in.Comments {
		verdict := sentiment.Verdict{Label: sentiment.Unknown}
		if i < len(in.Verdicts) {
			verdict = in.Verdicts[i]
		}

		rec, reason := l.joinOne(c, verdict, mapping, videos, creators)
		if reason != "" {
			report.Excluded[reason]++
			l.logger.Debug("[Linker] Comment excluded",
				slog.String("comment_id", c.CommentID.String()),
				slog.String("reason", string(reason)))
			continue
		}
		rec.MappingSource = in.MappingSource
		out = append(out, rec)
	}
	report.Joined = len(out)

	attrs := []any{
		slog.Int("comments", report.Comments),
		slog.Int("joined", report.Joined),
		slog.Int("mapping_conflicts", report.MappingConflicts),
	}
	for _, r := range Reasons {
		attrs = append(attrs, slog.Int(string(r), report.Excluded[r]))
	}
	l.logger.Info("[Linker] Join complete", attrs...)

	return JoinResult{Records: out, Report: report}
}

func (l *Linker) joinOne(
	c records.Comment,
	verdict sentiment.Verdict,
	mapping map[records.ID]records.ID,
	videos map[records.ID]records.Video,
	creators map[records.ID]records.Creator,
) (JoinedRecord, Reason) {
	vid, ok := mapping[c.CommentID]
	if !ok || c.CommentID == "" {
		return JoinedRecord{}, ReasonNoMapping
	}
	v, ok := videos[vid]
	if !ok {
		return JoinedRecord{}, ReasonUnknownVideo
	}

	creatorID := v.UserID
	if l.opts.CreatorKey == CreatorFromComment {
		creatorID = c.UserID
	}
	cr, ok := creators[creatorID]
	if !ok || creatorID == "" {
		return JoinedRecord{}, ReasonNoCreator
	}

	m, err := coerce(c, v, cr, verdict)
	if err != nil {
		return JoinedRecord{}, ReasonMalformedNumber
	}
	influence := classifyMetric(m, l.opts.Threshold)

	clock := l.opts.Clock
	commentDate, err := clock.For(records.CollectionComment, "create_time").Date(c.CreateTime)
	if err != nil {
		return JoinedRecord{}, ReasonMalformedTimestamp
	}
	videoDate, err := clock.For(records.CollectionVideo, "create_time").Date(v.CreateTime)
	if err != nil {
		return JoinedRecord{}, ReasonMalformedTimestamp
	}
	commentModified, err := optionalDate(clock.For(records.CollectionComment, "last_modify_ts"), c.LastModifyTS)
	if err != nil {
		return JoinedRecord{}, ReasonMalformedTimestamp
	}
	creatorModified, err := optionalDate(clock.For(records.CollectionCreator, "last_modify_ts"), cr.LastModifyTS)
	if err != nil {
		return JoinedRecord{}, ReasonMalformedTimestamp
	}

	return JoinedRecord{
		Comment:         c,
		Video:           v,
		Creator:         cr,
		Verdict:         verdict,
		Metrics:         m,
		Influence:       influence,
		CommentDate:     commentDate,
		VideoDate:       videoDate,
		CommentModified: commentModified,
		CreatorModified: creatorModified,
	}, ""
}

// optionalDate converts a field that may be absent. Absent is not an error;
// a present but unparseable value is.
func optionalDate(c records.Clock, n records.Number) (string, error) {
	if !n.IsSet() {
		return "", nil
	}
	return c.Date(n)
}

func coerce(c records.Comment, v records.Video, cr records.Creator, verdict sentiment.Verdict) (Metrics, error) {
	var m Metrics
	fields := []struct {
		dst *int64
		src records.Number
	}{
		{&m.SubCommentCount, c.SubCommentCount},
		{&m.LikedCount, v.LikedCount},
		{&m.PlayCount, v.VideoPlayCount},
		{&m.CommentCount, v.VideoComment},
		{&m.DanmakuCount, v.VideoDanmaku},
		{&m.Fans, cr.TotalFans},
		{&m.TotalLiked, cr.TotalLiked},
	}
	for _, f := range fields {
		n, err := f.src.Int64()
		if err != nil {
			return Metrics{}, err
		}
		*f.dst = n
	}
	if math.IsNaN(verdict.Score) || math.IsInf(verdict.Score, 0) {
		return Metrics{}, fmt.Errorf("sentiment score %v", verdict.Score)
	}
	m.SentimentScore = verdict.Score
	return m, nil
}

func indexBy[T any](items []T, key func(T) records.ID) map[records.ID]T {
	idx := make(map[records.ID]T, len(items))
	for _, it := range items {
		k := key(it)
		if k == "" {
			continue
		}
		if _, ok := idx[k]; !ok {
			idx[k] = it
		}
	}
	return idx
}

// ExcludedReasons returns the non-zero reasons, largest first.
func (r JoinReport) ExcludedReasons() []Reason {
	var out []Reason
	for _, reason := range Reasons {
		if r.Excluded[reason] > 0 {
			out = append(out, reason)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return r.Excluded[out[i]] > r.Excluded[out[j]]
	})
	return out
}
