package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize splits already-cleaned text into filtered tokens.
// Latin-like runs of letters, digits and hyphens form one token each.
// Han runs are segmented by greedy longest match against the dictionary;
// unmatched spans fall back to overlapping character bigrams.
func (n *Normalizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	var han []rune

	flushWord := func() {
		if current.Len() > 0 {
			if word := n.processToken(current.String()); word != "" {
				tokens = append(tokens, word)
			}
			current.Reset()
		}
	}
	flushHan := func() {
		if len(han) > 0 {
			for _, seg := range n.segmentHan(han) {
				if word := n.processToken(seg); word != "" {
					tokens = append(tokens, word)
				}
			}
			han = han[:0]
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-':
			flushHan()
			current.WriteRune(unicode.ToLower(r))
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()

	return tokens
}

// segmentHan splits a run of Han runes into words.
func (n *Normalizer) segmentHan(run []rune) []string {
	var out []string
	var pending []rune

	flushPending := func() {
		switch len(pending) {
		case 0:
		case 1:
			out = append(out, string(pending))
		default:
			for i := 0; i+1 < len(pending); i++ {
				out = append(out, string(pending[i:i+2]))
			}
		}
		pending = pending[:0]
	}

	for i := 0; i < len(run); {
		if l := n.longestMatch(run[i:]); l > 0 {
			flushPending()
			out = append(out, string(run[i:i+l]))
			i += l
			continue
		}
		pending = append(pending, run[i])
		i++
	}
	flushPending()
	return out
}

func (n *Normalizer) longestMatch(run []rune) int {
	limit := n.maxDict
	if limit > len(run) {
		limit = len(run)
	}
	for l := limit; l >= 1; l-- {
		if _, ok := n.dict[string(run[:l])]; ok {
			return l
		}
	}
	return 0
}

// processToken applies cleaning, length and stop-term filtering.
func (n *Normalizer) processToken(token string) string {
	word := cleanToken(token)
	if word == "" {
		return ""
	}
	if utf8.RuneCountInString(word) < n.minLen {
		return ""
	}

	// Mixed tokens like "4k" or "mp4" are kept.
	if isNumericOnly(word) {
		return ""
	}

	if n.stops.IsStop(word) {
		return ""
	}
	return word
}

// cleanToken strips leading/trailing hyphens and normalizes consecutive hyphens
func cleanToken(token string) string {
	token = strings.Trim(token, "-")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}

// isNumericOnly returns true if the token contains only digits and hyphens.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}
