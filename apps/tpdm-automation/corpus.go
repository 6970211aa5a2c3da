package main

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Label is the action predicted for a delegate comment.
type Label string

const (
	LabelAdd    Label = "ADD"
	LabelUpdate Label = "UPDATE"
	LabelTerm   Label = "TERM"
	LabelOther  Label = "OTHER"
)

// Labels is the fixed label set in export order.
var Labels = []Label{LabelAdd, LabelUpdate, LabelTerm, LabelOther}

// FallbackLabel is assigned to rows whose comment is blank.
const FallbackLabel = LabelAdd

// ParseLabel resolves a label name case-insensitively.
func ParseLabel(s string) (Label, error) {
	for _, label := range Labels {
		if strings.EqualFold(strings.TrimSpace(s), string(label)) {
			return label, nil
		}
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// labelIndex returns the position of label in Labels, or -1.
func labelIndex(label Label) int {
	for i, l := range Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// TrainingExample is one labeled comment of the seed corpus.
type TrainingExample struct {
	Comment string
	Label   Label
}

//go:embed seed_corpus.yaml
var seedCorpusYAML []byte

type corpusFile struct {
	Examples []struct {
		Comment string `yaml:"comment"`
		Label   string `yaml:"label"`
	} `yaml:"examples"`
}

// SeedCorpus returns the labeled corpus embedded in the binary.
func SeedCorpus() ([]TrainingExample, error) {
	return parseCorpus(seedCorpusYAML)
}

func parseCorpus(data []byte) ([]TrainingExample, error) {
	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: failed to parse seed corpus: %w", ErrConfiguration, err)
	}

	examples := make([]TrainingExample, 0, len(file.Examples))
	for i, ex := range file.Examples {
		label, err := ParseLabel(ex.Label)
		if err != nil {
			return nil, fmt.Errorf("%w: seed corpus example %d: %w", ErrConfiguration, i+1, err)
		}
		examples = append(examples, TrainingExample{Comment: ex.Comment, Label: label})
	}
	return examples, nil
}
