package analytics

import (
	"sort"

	"github.com/cognicore/socialens/pkg/socialens/link"
	"github.com/cognicore/socialens/pkg/socialens/sentiment"
)

// Day summarizes the sentiment of one calendar day.
type Day struct {
	Date         string                      `json:"date"`
	Count        int                         `json:"count"`
	Labels       map[sentiment.Label]int     `json:"labels"`
	Distribution map[sentiment.Label]float64 `json:"distribution"`
	// MeanScore averages scored (non-unknown) verdicts only.
	MeanScore   float64 `json:"mean_score"`
	Unknown     int     `json:"unknown"`
	SubComments int64   `json:"sub_comments"`
}

// Timeline groups joined records by comment date, oldest first. Unknown
// verdicts are counted separately and kept out of the mean.
func Timeline(records []link.JoinedRecord) []Day {
	byDate := make(map[string]*Day)
	sums := make(map[string]float64)
	for _, r := range records {
		d, ok := byDate[r.CommentDate]
		if !ok {
			d = &Day{Date: r.CommentDate, Labels: make(map[sentiment.Label]int)}
			byDate[r.CommentDate] = d
		}
		d.Count++
		d.Labels[r.Verdict.Label]++
		d.SubComments += r.Metrics.SubCommentCount
		if r.Verdict.IsUnknown() {
			d.Unknown++
			continue
		}
		sums[r.CommentDate] += r.Verdict.Score
	}

	out := make([]Day, 0, len(byDate))
	for date, d := range byDate {
		if scored := d.Count - d.Unknown; scored > 0 {
			d.MeanScore = sums[date] / float64(scored)
		}
		d.Distribution = make(map[sentiment.Label]float64, len(d.Labels))
		for l, c := range d.Labels {
			d.Distribution[l] = float64(c) / float64(d.Count)
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Breakdown counts verdict labels per influence class.
func Breakdown(records []link.JoinedRecord) map[link.Influence]map[sentiment.Label]int {
	out := make(map[link.Influence]map[sentiment.Label]int)
	for _, r := range records {
		if out[r.Influence] == nil {
			out[r.Influence] = make(map[sentiment.Label]int)
		}
		out[r.Influence][r.Verdict.Label]++
	}
	return out
}

// Engagement is the mean video engagement of comments with one label.
type Engagement struct {
	Label         sentiment.Label `json:"label"`
	Comments      int             `json:"comments"`
	MeanLiked     float64         `json:"mean_liked"`
	MeanPlays     float64         `json:"mean_plays"`
	MeanSubThread float64         `json:"mean_sub_comments"`
}

// EngagementByLabel averages engagement counters per verdict label, in
// label order negative, neutral, positive, unknown.
func EngagementByLabel(records []link.JoinedRecord) []Engagement {
	order := []sentiment.Label{sentiment.Negative, sentiment.Neutral, sentiment.Positive, sentiment.Unknown}
	acc := make(map[sentiment.Label]*Engagement, len(order))
	for _, r := range records {
		e, ok := acc[r.Verdict.Label]
		if !ok {
			e = &Engagement{Label: r.Verdict.Label}
			acc[r.Verdict.Label] = e
		}
		e.Comments++
		e.MeanLiked += float64(r.Metrics.LikedCount)
		e.MeanPlays += float64(r.Metrics.PlayCount)
		e.MeanSubThread += float64(r.Metrics.SubCommentCount)
	}

	var out []Engagement
	for _, l := range order {
		e, ok := acc[l]
		if !ok {
			continue
		}
		n := float64(e.Comments)
		e.MeanLiked /= n
		e.MeanPlays /= n
		e.MeanSubThread /= n
		out = append(out, *e)
	}
	return out
}
