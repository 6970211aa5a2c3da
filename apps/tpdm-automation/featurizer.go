package main

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/sugarme/tokenizer/normalizer"
)

const (
	textStart = "\x02"
	textEnd   = "\x03"
	charGram  = 3
)

type textNormalizer interface {
	Normalize(n *normalizer.NormalizedString) (*normalizer.NormalizedString, error)
}

// Featurizer turns a comment into a fixed-length vector: word unigrams and
// bigrams in one block, character trigrams in a second block, each block
// term-frequency weighted and L2-normalized. The vocabulary is fixed when the
// featurizer is fit; unseen terms are ignored.
type Featurizer struct {
	Words map[string]int
	Chars map[string]int

	normalizer textNormalizer
}

// fitFeaturizer builds the vocabulary from the training texts only.
func fitFeaturizer(texts []string) *Featurizer {
	f := &Featurizer{}
	f.init()

	words := make(map[string]struct{})
	chars := make(map[string]struct{})
	for _, text := range texts {
		w, c := f.terms(text)
		for _, t := range w {
			words[t] = struct{}{}
		}
		for _, t := range c {
			chars[t] = struct{}{}
		}
	}

	f.Words = indexTerms(words, 0)
	f.Chars = indexTerms(chars, len(f.Words))
	return f
}

func (f *Featurizer) init() {
	f.normalizer = normalizer.NewBertNormalizer(true, true, true, true)
}

// Dim is the length of every vector returned by Transform.
func (f *Featurizer) Dim() int {
	return len(f.Words) + len(f.Chars)
}

// Transform returns the feature vector for text.
func (f *Featurizer) Transform(text string) []float64 {
	vec := make([]float64, f.Dim())
	words, chars := f.terms(text)
	accumulate(vec, f.Words, words)
	accumulate(vec, f.Chars, chars)
	l2Normalize(vec[:len(f.Words)])
	l2Normalize(vec[len(f.Words):])
	return vec
}

// terms returns the word n-grams and character trigrams of text.
func (f *Featurizer) terms(text string) (words, chars []string) {
	tokens := strings.FieldsFunc(f.normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	words = append(words, tokens...)
	for i := 1; i < len(tokens); i++ {
		words = append(words, tokens[i-1]+" "+tokens[i])
	}

	runes := []rune(textStart + strings.Join(tokens, " ") + textEnd)
	for i := 0; i+charGram <= len(runes); i++ {
		chars = append(chars, string(runes[i:i+charGram]))
	}
	return words, chars
}

// normalize applies BERT-style cleanup: control characters removed,
// lowercased, accents stripped.
func (f *Featurizer) normalize(text string) string {
	if f.normalizer == nil {
		return strings.ToLower(text)
	}
	out, err := f.normalizer.Normalize(normalizer.NewNormalizedFrom(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return out.GetNormalized()
}

func indexTerms(set map[string]struct{}, offset int) map[string]int {
	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	index := make(map[string]int, len(terms))
	for i, t := range terms {
		index[t] = offset + i
	}
	return index
}

func accumulate(vec []float64, vocab map[string]int, terms []string) {
	for _, t := range terms {
		if i, ok := vocab[t]; ok {
			vec[i]++
		}
	}
}

func l2Normalize(block []float64) {
	var sum float64
	for _, v := range block {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range block {
		block[i] /= norm
	}
}
