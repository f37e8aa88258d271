package stoplist

import (
	"reflect"
	"testing"
)

func TestNewMergesDefaultsAndCustom(t *testing.T) {
	s := New(Options{
		Defaults: []string{"The", " a "},
		Custom:   []string{"黄梅戏", ""},
	})

	for _, term := range []string{"the", "a", "黄梅戏"} {
		if !s.IsStop(term) {
			t.Errorf("expected %q to be a stop term", term)
		}
	}
	if s.IsStop("opera") {
		t.Error("opera should not be a stop term")
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 terms, got %d", s.Len())
	}
}

func TestAddRemove(t *testing.T) {
	s := New(Options{})
	s.Add("Foo")
	if !s.IsStop("foo") {
		t.Fatal("foo should be excluded after Add")
	}
	s.Remove("FOO")
	if s.IsStop("foo") {
		t.Fatal("foo should not be excluded after Remove")
	}
}

func TestTermsSorted(t *testing.T) {
	s := New(Options{Defaults: []string{"c", "a", "b"}})
	if got := s.Terms(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Terms() = %v", got)
	}
}

func TestNilSetExcludesNothing(t *testing.T) {
	var s *Set
	if s.IsStop("the") {
		t.Error("nil set should exclude nothing")
	}
}

func TestLanguageStopWords(t *testing.T) {
	s := New(Options{Language: "en"})
	if !s.IsStop("the") {
		t.Error("'the' should be an English stop word")
	}
	if s.IsStop("opera") {
		t.Error("'opera' should survive English stop word cleaning")
	}
	// memoized path
	if !s.IsStop("the") {
		t.Error("memoized lookup changed result")
	}
}

func TestSuggest(t *testing.T) {
	s := New(Options{Defaults: []string{"already"}})
	stats := []Stats{
		{Token: "already", DF: 90, DFPercent: 90},
		{Token: "video", DF: 80, DFPercent: 80},
		{Token: "great", DF: 70, DFPercent: 70},
		{Token: "rare", DF: 2, DFPercent: 2},
		{Token: "alpha", DF: 70, DFPercent: 70},
	}

	got := s.Suggest(stats, 100, DefaultThresholds())
	want := []string{"video", "alpha", "great"}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %+v", len(want), len(got), got)
	}
	for i, c := range got {
		if c.Token != want[i] {
			t.Errorf("candidate %d = %s, want %s", i, c.Token, want[i])
		}
	}
	if got[0].Score != 0.8 {
		t.Errorf("score = %v, want 0.8", got[0].Score)
	}
}

func TestSuggestSmallCorpus(t *testing.T) {
	s := New(Options{})
	stats := []Stats{{Token: "x", DF: 3, DFPercent: 100}}
	if got := s.Suggest(stats, 3, DefaultThresholds()); got != nil {
		t.Errorf("expected no suggestions for tiny corpus, got %+v", got)
	}
}
