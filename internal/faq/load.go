package faq

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_faq.yaml
var defaultFAQ []byte

type file struct {
	Entries []Entry `yaml:"entries"`
}

// ErrNoEntries is returned when an FAQ document lists nothing usable.
var ErrNoEntries = errors.New("faq: no entries")

// Parse reads an ordered FAQ document.
func Parse(r io.Reader) ([]Entry, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("faq: decode: %w", err)
	}
	if len(f.Entries) == 0 {
		return nil, ErrNoEntries
	}
	for i, e := range f.Entries {
		if Normalize(e.Question) == "" || e.Answer == "" {
			return nil, fmt.Errorf("faq: entry %d needs a question and an answer", i)
		}
	}
	return f.Entries, nil
}

// Load builds a Matcher from a YAML file.
func Load(path string) (*Matcher, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("faq: open %s: %w", path, err)
	}
	defer fh.Close()

	entries, err := Parse(fh)
	if err != nil {
		return nil, err
	}
	return NewMatcher(entries), nil
}

// Default returns the built-in FAQ set.
func Default() *Matcher {
	var f file
	if err := yaml.Unmarshal(defaultFAQ, &f); err != nil {
		panic(fmt.Sprintf("faq: embedded defaults are invalid: %v", err))
	}
	return NewMatcher(f.Entries)
}

// LoadOrDefault loads path when set and falls back to the built-in set otherwise.
func LoadOrDefault(path string) (*Matcher, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
