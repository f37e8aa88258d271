// Package stoplist holds the explicit stop-term configuration handed to the
// text normalizer, plus corpus-driven suggestions for extending it.
package stoplist

import (
	"sort"
	"strings"
	"sync"

	"github.com/bbalet/stopwords"
)

// Set is a stop-term set. It is built from configuration and passed to the
// components that need it; there is no package-level default instance.
type Set struct {
	terms    map[string]struct{}
	language string

	mu       sync.Mutex
	langHits map[string]bool
}

// Options configures a Set.
type Options struct {
	// Defaults is the base exclusion list.
	Defaults []string
	// Custom extends Defaults.
	Custom []string
	// Language is an ISO 639-1 code whose stop words (bbalet/stopwords) are
	// excluded in addition to the explicit terms. Empty disables it.
	Language string
}

// New builds a Set from explicit options. Terms are lowercased and trimmed.
func New(opts Options) *Set {
	s := &Set{
		terms:    make(map[string]struct{}, len(opts.Defaults)+len(opts.Custom)),
		language: strings.ToLower(strings.TrimSpace(opts.Language)),
		langHits: make(map[string]bool),
	}
	for _, t := range opts.Defaults {
		s.Add(t)
	}
	for _, t := range opts.Custom {
		s.Add(t)
	}
	return s
}

// IsStop reports whether token is excluded.
func (s *Set) IsStop(token string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.terms[token]; ok {
		return true
	}
	if s.language == "" {
		return false
	}
	return s.isLanguageStop(token)
}

// isLanguageStop asks bbalet/stopwords whether the token survives cleaning.
// The library exposes no word list, so results are memoized per token.
func (s *Set) isLanguageStop(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hit, ok := s.langHits[token]; ok {
		return hit
	}
	cleaned := strings.TrimSpace(stopwords.CleanString(token, s.language, false))
	hit := cleaned == ""
	s.langHits[token] = hit
	return hit
}

// Add adds a term to the set.
func (s *Set) Add(term string) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return
	}
	s.terms[term] = struct{}{}
}

// Remove removes a term from the set.
func (s *Set) Remove(term string) {
	delete(s.terms, strings.ToLower(strings.TrimSpace(term)))
}

// Terms returns the explicit terms in sorted order.
func (s *Set) Terms() []string {
	result := make([]string, 0, len(s.terms))
	for t := range s.terms {
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of explicit terms.
func (s *Set) Len() int { return len(s.terms) }

// Language returns the configured language code.
func (s *Set) Language() string { return s.language }
