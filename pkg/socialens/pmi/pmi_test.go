package pmi

import (
	"math"
	"testing"
)

func TestCounterCountsDocumentsOnce(t *testing.T) {
	c := NewCounter(nil)
	c.AddDocument([]string{"opera", "voice", "opera"})
	c.AddDocument([]string{"voice", "stage"})

	if c.TotalDocs() != 2 {
		t.Errorf("docs = %d, want 2", c.TotalDocs())
	}
	if c.TokenCount("opera") != 1 {
		t.Errorf("opera df = %d, want 1", c.TokenCount("opera"))
	}
	if c.TokenCount("voice") != 2 {
		t.Errorf("voice df = %d, want 2", c.TokenCount("voice"))
	}
	if c.PairCount("voice", "opera") != 1 || c.PairCount("opera", "voice") != 1 {
		t.Error("pair counts must be symmetric")
	}
	if c.UniquePairs() != 2 {
		t.Errorf("pairs = %d, want 2", c.UniquePairs())
	}
}

func TestCounterVocabulary(t *testing.T) {
	c := NewCounter([]string{"a", "b"})
	c.AddDocument([]string{"a", "b", "c"})
	if c.TokenCount("c") != 0 {
		t.Error("tokens outside the vocabulary must be ignored")
	}
	if c.UniquePairs() != 1 {
		t.Errorf("pairs = %d, want 1", c.UniquePairs())
	}
}

func TestPMIAssociation(t *testing.T) {
	calc := NewCalculator(1.0)
	tests := []struct {
		name         string
		nAB, nA, nB  int64
		n            int64
		wantPositive bool
		wantNearZero bool
	}{
		{"strong", 8, 10, 10, 20, true, false},
		{"independent", 25, 50, 50, 100, false, true},
		{"anti", 5, 50, 50, 100, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := calc.PMI(tt.nAB, tt.nA, tt.nB, tt.n)
			switch {
			case tt.wantPositive && v <= 0:
				t.Errorf("PMI = %f, want > 0", v)
			case tt.wantNearZero && math.Abs(v) > 0.5:
				t.Errorf("PMI = %f, want near 0", v)
			case !tt.wantPositive && !tt.wantNearZero && v >= 0:
				t.Errorf("PMI = %f, want < 0", v)
			}
		})
	}
}

func TestPMIZeroDocuments(t *testing.T) {
	calc := NewCalculator(-1)
	if calc.PMI(0, 0, 0, 0) != 0 || calc.NPMI(0, 0, 0, 0) != 0 {
		t.Error("empty corpus must give 0")
	}
}

func TestNPMIRange(t *testing.T) {
	calc := NewCalculator(1.0)
	for _, tc := range [][4]int64{{15, 20, 20, 100}, {1, 1, 1, 100}, {50, 50, 50, 50}, {0, 10, 10, 100}} {
		v := calc.NPMI(tc[0], tc[1], tc[2], tc[3])
		if v < -1 || v > 1 || math.IsNaN(v) {
			t.Errorf("NPMI%v = %f outside [-1,1]", tc, v)
		}
	}
	if v := calc.NPMI(0, 10, 10, 100); v != -1 {
		t.Errorf("never co-occurring pair = %f, want -1", v)
	}
}

func TestCoherence(t *testing.T) {
	c := NewCounter(nil)
	for i := 0; i < 5; i++ {
		c.AddDocument([]string{"黄梅戏", "唱腔"})
		c.AddDocument([]string{"游戏", "手机"})
	}
	calc := NewCalculator(1.0)

	together := calc.Coherence(c, []string{"黄梅戏", "唱腔"})
	apart := calc.Coherence(c, []string{"黄梅戏", "手机"})
	if together <= apart {
		t.Errorf("coherent pair %f should beat incoherent pair %f", together, apart)
	}
	if calc.Coherence(c, []string{"solo"}) != 0 {
		t.Error("single term coherence must be 0")
	}
	if calc.Coherence(nil, []string{"a", "b"}) != 0 {
		t.Error("nil counter coherence must be 0")
	}
}
