package main

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strings"
)

const (
	modelMagic         = "TPDM-CLF"
	modelFormatVersion = 1
	modelSchema        = "word12-char3-tf-l2/maxent-sgd"
)

// TrainOptions controls the optimizer. Training is deterministic for a given
// corpus and options.
type TrainOptions struct {
	Seed         int64
	Epochs       int
	LearningRate float64
	L2           float64
}

// DefaultTrainOptions returns the options used by the pipeline (seed 0).
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Seed:         0,
		Epochs:       300,
		LearningRate: 0.5,
		L2:           1e-4,
	}
}

// Model is a multinomial logistic regression over Featurizer vectors.
// Labels maps class keys to labels and is fixed at training time.
// A Model is read-only once trained or loaded.
type Model struct {
	Labels     []Label
	Featurizer *Featurizer
	Weights    [][]float64 // [class][feature]
	Bias       []float64
}

// Train fits a model on corpus. It fails with ErrConfiguration when the corpus
// cannot discriminate between at least two labels.
func Train(corpus []TrainingExample, opts TrainOptions) (*Model, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("%w: seed corpus is empty", ErrConfiguration)
	}
	if opts.Epochs <= 0 || opts.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: epochs and learning rate must be positive", ErrConfiguration)
	}

	present := make(map[Label]bool)
	texts := make([]string, len(corpus))
	for i, ex := range corpus {
		if labelIndex(ex.Label) < 0 {
			return nil, fmt.Errorf("%w: example %d has unknown label %q", ErrConfiguration, i+1, ex.Label)
		}
		if isBlankComment(ex.Comment) {
			return nil, fmt.Errorf("%w: example %d has an empty comment", ErrConfiguration, i+1)
		}
		present[ex.Label] = true
		texts[i] = ex.Comment
	}

	var labels []Label
	key := make(map[Label]int)
	for _, label := range Labels {
		if present[label] {
			key[label] = len(labels)
			labels = append(labels, label)
		}
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("%w: seed corpus needs at least 2 distinct labels, got %d", ErrConfiguration, len(labels))
	}

	feat := fitFeaturizer(texts)
	xs := make([][]float64, len(corpus))
	ys := make([]int, len(corpus))
	for i, ex := range corpus {
		xs[i] = feat.Transform(ex.Comment)
		ys[i] = key[ex.Label]
	}

	m := &Model{
		Labels:     labels,
		Featurizer: feat,
		Weights:    make([][]float64, len(labels)),
		Bias:       make([]float64, len(labels)),
	}
	for c := range m.Weights {
		m.Weights[c] = make([]float64, feat.Dim())
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	probs := make([]float64, len(labels))
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		lr := opts.LearningRate / (1 + 0.01*float64(epoch))
		for _, i := range rng.Perm(len(xs)) {
			x := xs[i]
			m.probabilities(x, probs)
			for c, w := range m.Weights {
				g := probs[c]
				if c == ys[i] {
					g--
				}
				for j, xj := range x {
					w[j] -= lr * (g*xj + opts.L2*w[j])
				}
				m.Bias[c] -= lr * g
			}
		}
	}

	return m, nil
}

// Predict returns the label for comment. Blank comments always map to
// FallbackLabel without consulting the model.
func (m *Model) Predict(comment string) Label {
	if isBlankComment(comment) {
		return FallbackLabel
	}
	probs := m.Probabilities(comment)
	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return m.Labels[best]
}

// Probabilities returns the class probabilities for comment, aligned with
// m.Labels.
func (m *Model) Probabilities(comment string) []float64 {
	probs := make([]float64, len(m.Labels))
	m.probabilities(m.Featurizer.Transform(comment), probs)
	return probs
}

func (m *Model) probabilities(x []float64, out []float64) {
	for c, w := range m.Weights {
		s := m.Bias[c]
		for j, xj := range x {
			if xj != 0 {
				s += w[j] * xj
			}
		}
		out[c] = s
	}
	softmax(out)
}

func softmax(scores []float64) {
	peak := math.Inf(-1)
	for _, s := range scores {
		peak = math.Max(peak, s)
	}
	var sum float64
	for i, s := range scores {
		scores[i] = math.Exp(s - peak)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
}

func isBlankComment(comment string) bool {
	return strings.TrimSpace(comment) == ""
}

type modelEnvelope struct {
	Version  int
	Schema   string
	Checksum [sha256.Size]byte
	Payload  []byte
}

type modelPayload struct {
	Labels  []string
	Words   map[string]int
	Chars   map[string]int
	Weights [][]float64
	Bias    []float64
}

// Save writes the model to path as a versioned, checksummed binary artifact.
func (m *Model) Save(path string) error {
	return writeAtomic(path, m.encode)
}

func (m *Model) encode(w io.Writer) error {
	p := modelPayload{
		Labels:  make([]string, len(m.Labels)),
		Words:   m.Featurizer.Words,
		Chars:   m.Featurizer.Chars,
		Weights: m.Weights,
		Bias:    m.Bias,
	}
	for i, label := range m.Labels {
		p.Labels[i] = string(label)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(zw).Encode(p); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress model: %w", err)
	}

	env := modelEnvelope{
		Version:  modelFormatVersion,
		Schema:   modelSchema,
		Checksum: sha256.Sum256(buf.Bytes()),
		Payload:  buf.Bytes(),
	}
	if _, err := io.WriteString(w, modelMagic); err != nil {
		return err
	}
	return gob.NewEncoder(w).Encode(env)
}

// LoadModel reads a model written by Save. A missing file or an artifact that
// does not match this build's format fails with ErrModelUnavailable.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	m, err := decodeModel(data)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt model %s: %w", ErrModelUnavailable, path, err)
	}
	return m, nil
}

func decodeModel(data []byte) (*Model, error) {
	if !bytes.HasPrefix(data, []byte(modelMagic)) {
		return nil, errors.New("not a classifier artifact")
	}

	var env modelEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data[len(modelMagic):])).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Version != modelFormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", env.Version)
	}
	if env.Schema != modelSchema {
		return nil, fmt.Errorf("unsupported schema %q", env.Schema)
	}
	if sha256.Sum256(env.Payload) != env.Checksum {
		return nil, errors.New("checksum mismatch")
	}

	zr, err := gzip.NewReader(bytes.NewReader(env.Payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	defer zr.Close()

	var p modelPayload
	if err := gob.NewDecoder(zr).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	m := &Model{
		Featurizer: &Featurizer{Words: p.Words, Chars: p.Chars},
		Weights:    p.Weights,
		Bias:       p.Bias,
	}
	m.Featurizer.init()
	for _, name := range p.Labels {
		label, err := ParseLabel(name)
		if err != nil {
			return nil, err
		}
		m.Labels = append(m.Labels, label)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// validate checks that the decoded parts agree on their dimensions.
func (m *Model) validate() error {
	if len(m.Labels) < 2 {
		return fmt.Errorf("model has %d labels", len(m.Labels))
	}
	seen := make(map[Label]bool)
	for _, label := range m.Labels {
		if seen[label] {
			return fmt.Errorf("duplicate label %s", label)
		}
		seen[label] = true
	}
	if len(m.Weights) != len(m.Labels) || len(m.Bias) != len(m.Labels) {
		return fmt.Errorf("weights for %d classes, bias for %d, labels %d",
			len(m.Weights), len(m.Bias), len(m.Labels))
	}

	dim := m.Featurizer.Dim()
	for c, w := range m.Weights {
		if len(w) != dim {
			return fmt.Errorf("class %d has %d weights, want %d", c, len(w), dim)
		}
	}
	words := len(m.Featurizer.Words)
	for term, i := range m.Featurizer.Words {
		if i < 0 || i >= words {
			return fmt.Errorf("word term %q out of range", term)
		}
	}
	for term, i := range m.Featurizer.Chars {
		if i < words || i >= dim {
			return fmt.Errorf("char term %q out of range", term)
		}
	}
	return nil
}
