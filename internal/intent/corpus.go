package intent

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var defaultCorpus []byte

// ParseCorpus reads a YAML mapping of label to example sentences.
func ParseCorpus(r io.Reader) ([]Example, error) {
	var raw map[string][]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("intent: decode corpus: %w", err)
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Example
	for _, name := range names {
		label, err := ParseLabel(name)
		if err != nil {
			return nil, err
		}
		for _, text := range raw[name] {
			out = append(out, Example{Text: text, Label: label})
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyCorpus
	}
	return out, nil
}

// DefaultCorpus returns the built-in labeled sentences.
func DefaultCorpus() []Example {
	f, err := ParseCorpus(bytes.NewReader(defaultCorpus))
	if err != nil {
		panic(fmt.Sprintf("intent: embedded corpus is invalid: %v", err))
	}
	return f
}

// DefaultModel trains a model on the built-in corpus.
func DefaultModel() *Model {
	m, err := Train(DefaultCorpus(), DefaultAlpha)
	if err != nil {
		panic(fmt.Sprintf("intent: train default model: %v", err))
	}
	return m
}

// LoadOrTrain reads a saved artifact from path, or trains the default model
// when path is empty.
func LoadOrTrain(path string) (*Model, error) {
	if path == "" {
		return DefaultModel(), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("intent: open model %s: %w", path, err)
	}
	defer fh.Close()
	return LoadModel(fh)
}
