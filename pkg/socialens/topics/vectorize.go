package topics

import (
	"math"
	"sort"
)

// entry is one non-zero cell of a sparse row.
type entry struct {
	col int
	val float64
}

// termMatrix is a TF-IDF weighted document-term matrix with sparse rows.
type termMatrix struct {
	vocab []string
	rows  [][]entry
}

// vectorize builds the vocabulary under the document-frequency bounds and
// weighs each document with smooth IDF, ln((1+n)/(1+df)) + 1, then L2
// normalizes each row.
func vectorize(docs []Document, cfg Config) termMatrix {
	n := len(docs)
	if n == 0 {
		return termMatrix{}
	}

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]struct{}, len(d.Tokens))
		for _, t := range d.Tokens {
			tf[t]++
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	maxDocs := cfg.MaxDF
	if maxDocs <= 1 {
		maxDocs = cfg.MaxDF * float64(n)
	}
	var vocab []string
	for t, c := range df {
		if c < cfg.MinDF || float64(c) > maxDocs {
			continue
		}
		vocab = append(vocab, t)
	}
	if cfg.MaxFeatures > 0 && len(vocab) > cfg.MaxFeatures {
		sort.Slice(vocab, func(i, j int) bool {
			if tf[vocab[i]] != tf[vocab[j]] {
				return tf[vocab[i]] > tf[vocab[j]]
			}
			return vocab[i] < vocab[j]
		})
		vocab = vocab[:cfg.MaxFeatures]
	}
	sort.Strings(vocab)
	if len(vocab) == 0 {
		return termMatrix{}
	}

	col := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	for i, t := range vocab {
		col[t] = i
		idf[i] = math.Log(float64(1+n)/float64(1+df[t])) + 1
	}

	rows := make([][]entry, n)
	for d, doc := range docs {
		counts := make(map[int]int)
		for _, t := range doc.Tokens {
			if c, ok := col[t]; ok {
				counts[c]++
			}
		}
		row := make([]entry, 0, len(counts))
		var norm float64
		for c, cnt := range counts {
			v := float64(cnt) * idf[c]
			row = append(row, entry{col: c, val: v})
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for i := range row {
				row[i].val /= norm
			}
		}
		sort.Slice(row, func(i, j int) bool { return row[i].col < row[j].col })
		rows[d] = row
	}
	return termMatrix{vocab: vocab, rows: rows}
}
