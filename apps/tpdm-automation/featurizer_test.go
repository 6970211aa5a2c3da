package main

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitFeaturizerVocabulary(t *testing.T) {
	f := fitFeaturizer([]string{"Add new user"})

	wantWords := map[string]int{
		"add":      0,
		"add new":  1,
		"new":      2,
		"new user": 3,
		"user":     4,
	}
	if diff := cmp.Diff(wantWords, f.Words); diff != "" {
		t.Errorf("word vocabulary mismatch (-want +got):\n%s", diff)
	}

	// "\x02add new user\x03" has 14 runes and so 12 trigrams, all distinct.
	assert.Len(t, f.Chars, 12)
	assert.Equal(t, 17, f.Dim())
	for term, i := range f.Chars {
		assert.GreaterOrEqual(t, i, len(f.Words), "char term %q overlaps the word block", term)
	}
}

func TestFitFeaturizerIsOrderIndependent(t *testing.T) {
	a := fitFeaturizer([]string{"Update contact info", "Resignation", "New hire"})
	b := fitFeaturizer([]string{"New hire", "Update contact info", "Resignation"})

	assert.Equal(t, a.Words, b.Words)
	assert.Equal(t, a.Chars, b.Chars)
}

func TestTransform(t *testing.T) {
	f := fitFeaturizer([]string{"Add new user"})

	vec := f.Transform("ADD  new!")
	require.Len(t, vec, f.Dim())

	inv := 1 / math.Sqrt(3)
	words := vec[:len(f.Words)]
	assert.InDeltaSlice(t, []float64{inv, inv, inv, 0, 0}, words, 1e-12)

	assert.InDelta(t, 1.0, sumSquares(vec[len(f.Words):]), 1e-9)
}

func TestTransformUnseenText(t *testing.T) {
	f := fitFeaturizer([]string{"Add new user"})

	for _, text := range []string{"", "   ", "zzzz qqqq"} {
		vec := f.Transform(text)
		require.Len(t, vec, f.Dim())
		assert.Zero(t, sumSquares(vec), "text %q should have no known features", text)
	}
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}
