package topics

// TFIDF returns one topic per document holding its top-K terms. Documents
// with no term inside the vocabulary bounds are skipped; Index is the
// document's position in docs.
func (e *Extractor) TFIDF(docs []Document) []Topic {
	m := vectorize(docs, e.cfg)
	if len(m.vocab) == 0 {
		return []Topic{}
	}

	out := make([]Topic, 0, len(docs))
	weights := make([]float64, len(m.vocab))
	for d, row := range m.rows {
		if len(row) == 0 {
			continue
		}
		for _, en := range row {
			weights[en.col] = en.val
		}
		out = append(out, Topic{
			Method:    MethodTFIDF,
			Index:     d,
			Keywords:  topKeywords(weights, m.vocab, e.cfg.TopK),
			Documents: []string{docs[d].ID},
		})
		for _, en := range row {
			weights[en.col] = 0
		}
	}
	return out
}
