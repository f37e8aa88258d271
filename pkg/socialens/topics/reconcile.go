package topics

import (
	"strings"

	"github.com/cognicore/socialens/pkg/socialens/pmi"
)

// Match lists the seed keywords one topic recovered.
type Match struct {
	Method    Method   `json:"method"`
	Index     int      `json:"index"`
	Recovered []string `json:"recovered"`
}

// Reconcile intersects each topic's keywords with the seed keywords and
// reports the recovered seeds in seed order. It is a diagnostic; topics
// are returned untouched and never merged. Matching ignores case.
func Reconcile(topics []Topic, seeds []string) []Match {
	out := make([]Match, 0, len(topics))
	for _, t := range topics {
		terms := make(map[string]struct{}, len(t.Keywords))
		for _, k := range t.Keywords {
			terms[strings.ToLower(k.Term)] = struct{}{}
		}
		recovered := []string{}
		seen := make(map[string]struct{}, len(seeds))
		for _, s := range seeds {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if _, ok := terms[key]; ok {
				recovered = append(recovered, s)
			}
		}
		out = append(out, Match{Method: t.Method, Index: t.Index, Recovered: recovered})
	}
	return out
}

// Coverage returns, per method, the distinct seeds recovered by any of its
// topics, in seed order.
func Coverage(matches []Match, seeds []string) map[Method][]string {
	found := make(map[Method]map[string]struct{})
	for _, m := range matches {
		if found[m.Method] == nil {
			found[m.Method] = make(map[string]struct{})
		}
		for _, s := range m.Recovered {
			found[m.Method][s] = struct{}{}
		}
	}
	out := make(map[Method][]string, len(found))
	for method, set := range found {
		list := []string{}
		for _, s := range seeds {
			if _, ok := set[s]; ok {
				list = append(list, s)
				delete(set, s)
			}
		}
		out[method] = list
	}
	return out
}

// Annotate returns a copy of topics with NPMI coherence computed from
// document co-occurrence of each topic's top terms. Topics with fewer than
// two terms get no score.
func Annotate(topics []Topic, docs []Document) []Topic {
	if len(topics) == 0 {
		return topics
	}

	var vocab []string
	for _, t := range topics {
		vocab = append(vocab, t.Terms()...)
	}
	if len(vocab) == 0 {
		return topics
	}
	counts := pmi.NewCounter(vocab)
	for _, d := range docs {
		counts.AddDocument(d.Tokens)
	}
	calc := pmi.NewCalculator(1.0)

	out := make([]Topic, len(topics))
	for i, t := range topics {
		out[i] = t
		terms := t.Terms()
		if len(terms) < 2 || counts.TotalDocs() == 0 {
			continue
		}
		c := calc.Coherence(counts, terms)
		out[i].Coherence = &c
	}
	return out
}
