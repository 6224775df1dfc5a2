// Package intent classifies free-text chat messages into a small set of
// sales intents using a multinomial Naive Bayes bag-of-words model.
//
// The model has no "unknown" class. A message whose tokens are all outside
// the training vocabulary scores every class by its prior alone, and ties go
// to the first class in sorted order. With the default corpus that is
// "inquiry".
package intent

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Label is a conversational intent.
type Label string

const (
	Interest  Label = "interest"
	Inquiry   Label = "inquiry"
	Objection Label = "objection"
	Other     Label = "other"
)

// Labels lists every label the router understands.
var Labels = []Label{Inquiry, Interest, Objection, Other}

// ParseLabel validates a label name.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Labels {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("intent: unknown label %q", s)
}

// Classifier maps a message to a label.
type Classifier interface {
	Classify(ctx context.Context, message string) Label
}

// Tokenize lowercases text and returns runs of two or more word characters
// (letters, digits, underscore). Apostrophes split words, so "I'm" yields nothing.
func Tokenize(text string) []string {
	var (
		tokens []string
		cur    []rune
	)
	flush := func() {
		if len(cur) >= 2 {
			tokens = append(tokens, string(cur))
		}
		cur = cur[:0]
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur = append(cur, r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}
