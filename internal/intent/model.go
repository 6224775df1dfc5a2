package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// ModelVersion identifies the artifact layout written by Save.
const ModelVersion = 1

// DefaultAlpha is the Laplace smoothing constant.
const DefaultAlpha = 1.0

// Example is one labeled training sentence.
type Example struct {
	Text  string
	Label Label
}

// Model is a trained multinomial Naive Bayes classifier. It is immutable
// once built and safe for concurrent use.
type Model struct {
	Version       int            `json:"version"`
	TrainedAt     time.Time      `json:"trained_at"`
	Alpha         float64        `json:"alpha"`
	Classes       []Label        `json:"classes"`
	Vocabulary    map[string]int `json:"vocabulary"`
	LogPrior      []float64      `json:"log_prior"`
	LogLikelihood [][]float64    `json:"log_likelihood"`
	Examples      map[Label]int  `json:"examples"`
}

var _ Classifier = (*Model)(nil)

// ErrEmptyCorpus is returned when Train receives no usable examples.
var ErrEmptyCorpus = errors.New("intent: empty training corpus")

// Train fits a model. Classes and vocabulary are stored sorted so the
// artifact is deterministic for a given corpus.
func Train(examples []Example, alpha float64) (*Model, error) {
	if len(examples) == 0 {
		return nil, ErrEmptyCorpus
	}
	if alpha <= 0 {
		alpha = DefaultAlpha
	}

	classCount := map[Label]int{}
	tokenCounts := map[Label]map[string]int{}
	vocabSet := map[string]struct{}{}
	for _, ex := range examples {
		classCount[ex.Label]++
		if tokenCounts[ex.Label] == nil {
			tokenCounts[ex.Label] = map[string]int{}
		}
		for _, tok := range Tokenize(ex.Text) {
			tokenCounts[ex.Label][tok]++
			vocabSet[tok] = struct{}{}
		}
	}

	classes := make([]Label, 0, len(classCount))
	for c := range classCount {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	words := make([]string, 0, len(vocabSet))
	for w := range vocabSet {
		words = append(words, w)
	}
	sort.Strings(words)
	vocab := make(map[string]int, len(words))
	for i, w := range words {
		vocab[w] = i
	}

	m := &Model{
		Version:       ModelVersion,
		TrainedAt:     time.Now().UTC(),
		Alpha:         alpha,
		Classes:       classes,
		Vocabulary:    vocab,
		LogPrior:      make([]float64, len(classes)),
		LogLikelihood: make([][]float64, len(classes)),
		Examples:      classCount,
	}
	total := float64(len(examples))
	for ci, c := range classes {
		m.LogPrior[ci] = math.Log(float64(classCount[c]) / total)

		sum := 0
		for _, n := range tokenCounts[c] {
			sum += n
		}
		denom := float64(sum) + alpha*float64(len(words))
		row := make([]float64, len(words))
		for wi, w := range words {
			row[wi] = math.Log((float64(tokenCounts[c][w]) + alpha) / denom)
		}
		m.LogLikelihood[ci] = row
	}
	return m, nil
}

// Scores returns the joint log likelihood per class in Classes order.
func (m *Model) Scores(message string) []float64 {
	scores := make([]float64, len(m.Classes))
	copy(scores, m.LogPrior)
	for _, tok := range Tokenize(message) {
		wi, ok := m.Vocabulary[tok]
		if !ok {
			continue
		}
		for ci := range m.Classes {
			scores[ci] += m.LogLikelihood[ci][wi]
		}
	}
	return scores
}

// Classify returns the highest scoring class.
func (m *Model) Classify(_ context.Context, message string) Label {
	if len(m.Classes) == 0 {
		return Other
	}
	scores := m.Scores(message)
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return m.Classes[best]
}

// Save writes the model as JSON.
func (m *Model) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("intent: encode model: %w", err)
	}
	return nil
}

// LoadModel reads and validates a model artifact.
func LoadModel(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("intent: decode model: %w", err)
	}
	if m.Version != ModelVersion {
		return nil, fmt.Errorf("intent: unsupported model version %d", m.Version)
	}
	if len(m.Classes) == 0 || len(m.LogPrior) != len(m.Classes) || len(m.LogLikelihood) != len(m.Classes) {
		return nil, errors.New("intent: model class tables are inconsistent")
	}
	for _, row := range m.LogLikelihood {
		if len(row) != len(m.Vocabulary) {
			return nil, errors.New("intent: model vocabulary size mismatch")
		}
	}
	return &m, nil
}
