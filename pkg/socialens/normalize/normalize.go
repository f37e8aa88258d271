// Package normalize turns raw record text into filtered token sequences.
//
// A Normalizer is a pure function of its configuration and input: the stop
// set, token floor and segmentation dictionary are all passed in explicitly.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/socialens/pkg/socialens/stoplist"
)

// DefaultMinTokenLength drops single-rune tokens.
const DefaultMinTokenLength = 2

// Config controls normalization.
type Config struct {
	// MinTokenLength is the floor, in runes, for emitted tokens.
	MinTokenLength int
	// Markdown renders markdown before tag stripping.
	Markdown bool
	// Dictionary holds multi-rune Han words used for segmentation.
	Dictionary []string
}

// Normalizer cleans and tokenizes text.
type Normalizer struct {
	cfg     Config
	stops   *stoplist.Set
	minLen  int
	dict    map[string]struct{}
	maxDict int
}

// New creates a normalizer. stops may be nil (no exclusions).
// Han stop terms of two or more runes are added to the segmentation
// dictionary so that they are cut out as whole words and then removed.
// Single-rune stop terms stay out of it: as dictionary entries they would
// cut ordinary words such as 现在 or 和谐 apart.
func New(cfg Config, stops *stoplist.Set) *Normalizer {
	n := &Normalizer{
		cfg:    cfg,
		stops:  stops,
		minLen: cfg.MinTokenLength,
		dict:   make(map[string]struct{}),
	}
	if n.minLen < 1 {
		n.minLen = 1
	}

	addWord := func(w string) {
		w = strings.ToLower(strings.TrimSpace(w))
		if !hasHan(w) {
			return
		}
		n.dict[w] = struct{}{}
		if l := utf8.RuneCountInString(w); l > n.maxDict {
			n.maxDict = l
		}
	}
	for _, w := range cfg.Dictionary {
		addWord(w)
	}
	if stops != nil {
		for _, w := range stops.Terms() {
			if utf8.RuneCountInString(strings.TrimSpace(w)) >= 2 {
				addWord(w)
			}
		}
	}
	return n
}

// Normalize cleans text and returns its filtered tokens.
// Empty text yields an empty (nil) sequence.
func (n *Normalizer) Normalize(text string) []string {
	cleaned := n.Clean(text)
	if cleaned == "" {
		return nil
	}
	return n.Tokenize(cleaned)
}

// NormalizeAll normalizes every text, preserving order.
func (n *Normalizer) NormalizeAll(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = n.Normalize(t)
	}
	return out
}

// MinTokenLength returns the effective token floor.
func (n *Normalizer) MinTokenLength() int { return n.minLen }

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
