// Package link joins comments to videos and creators.
//
// Scraped comments carry no reliable video key, so the comment→video
// mapping is either provided, or synthesized by round-robin assignment.
// A round-robin mapping is a placeholder for a missing key and carries no
// semantic meaning. It is persisted on first synthesis and reused on later
// runs so joins stay reproducible.
package link

import (
	"github.com/cognicore/socialens/pkg/socialens/records"
)

// Source tags where a mapping came from.
type Source string

const (
	SourceProvided    Source = "provided"
	SourceSynthesized Source = "synthesized"
	SourceSharedUser  Source = "shared_user"
)

// Strategy selects how a missing mapping is produced.
type Strategy string

const (
	StrategyRoundRobin Strategy = "round_robin"
	StrategySharedUser Strategy = "shared_user"
)

// BuildMapping assigns distinct comment ids (first-seen order) to distinct
// video ids (first-seen order) by round-robin: the i-th comment gets
// video[i % len(videos)]. Blank ids are skipped. No videos, no mapping.
func BuildMapping(comments []records.Comment, videos []records.Video) []records.Mapping {
	videoIDs := distinct(len(videos), func(i int) records.ID { return videos[i].VideoID })
	if len(videoIDs) == 0 {
		return nil
	}
	commentIDs := distinct(len(comments), func(i int) records.ID { return comments[i].CommentID })

	out := make([]records.Mapping, len(commentIDs))
	for i, cid := range commentIDs {
		out[i] = records.Mapping{CommentID: cid, VideoID: videoIDs[i%len(videoIDs)]}
	}
	return out
}

// MappingBySharedUser maps each comment to the first video whose author has
// the comment's user id. Comments with no such video stay unmapped.
func MappingBySharedUser(comments []records.Comment, videos []records.Video) []records.Mapping {
	byUser := make(map[records.ID]records.ID, len(videos))
	for _, v := range videos {
		if v.UserID == "" || v.VideoID == "" {
			continue
		}
		if _, ok := byUser[v.UserID]; !ok {
			byUser[v.UserID] = v.VideoID
		}
	}

	seen := make(map[records.ID]struct{}, len(comments))
	var out []records.Mapping
	for _, c := range comments {
		if c.CommentID == "" {
			continue
		}
		if _, dup := seen[c.CommentID]; dup {
			continue
		}
		seen[c.CommentID] = struct{}{}
		if vid, ok := byUser[c.UserID]; ok {
			out = append(out, records.Mapping{CommentID: c.CommentID, VideoID: vid})
		}
	}
	return out
}

func distinct(n int, id func(int) records.ID) []records.ID {
	seen := make(map[records.ID]struct{}, n)
	out := make([]records.ID, 0, n)
	for i := 0; i < n; i++ {
		k := id(i)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
