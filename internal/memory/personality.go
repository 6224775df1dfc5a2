package memory

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Personality string

const (
	Friendly     Personality = "friendly"
	Professional Personality = "professional"
	Casual       Personality = "casual"
	Enthusiastic Personality = "enthusiastic"

	DefaultPersonality = Friendly
)

func (p Personality) Valid() bool {
	switch p {
	case Friendly, Professional, Casual, Enthusiastic:
		return true
	}
	return false
}

// Phrases is the default rotation pool used regardless of personality.
type Phrases struct {
	Greetings       []string `yaml:"greetings"`
	FollowUps       []string `yaml:"follow_ups"`
	Acknowledgments []string `yaml:"acknowledgments"`
}

func (p Phrases) list(kind Kind) []string {
	switch kind {
	case Greeting:
		return p.Greetings
	case FollowUp:
		return p.FollowUps
	default:
		return p.Acknowledgments
	}
}

// Profile is the phrasing of one personality. Responses serve as
// acknowledgments and transitions as follow-ups.
type Profile struct {
	Name        string   `yaml:"name"`
	Traits      []string `yaml:"traits"`
	Greetings   []string `yaml:"greetings"`
	Responses   []string `yaml:"responses"`
	Transitions []string `yaml:"transitions"`
}

func (p Profile) list(kind Kind) []string {
	switch kind {
	case Greeting:
		return p.Greetings
	case FollowUp:
		return p.Transitions
	default:
		return p.Responses
	}
}

type Profiles map[Personality]Profile

//go:embed phrases.yaml
var phrasesYAML []byte

//go:embed personalities.yaml
var personalitiesYAML []byte

func DefaultPhrases() Phrases {
	var p Phrases
	if err := yaml.Unmarshal(phrasesYAML, &p); err != nil {
		panic(fmt.Sprintf("memory: embedded phrases invalid: %v", err))
	}
	return p
}

func DefaultProfiles() Profiles {
	p, err := ParseProfiles(personalitiesYAML)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseProfiles decodes personality profiles, rejecting unknown personalities.
func ParseProfiles(data []byte) (Profiles, error) {
	var p Profiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("memory: parse profiles: %w", err)
	}
	for name := range p {
		if !name.Valid() {
			return nil, fmt.Errorf("memory: unknown personality %q", name)
		}
	}
	return p, nil
}

// LoadProfiles reads profiles from path, or returns the embedded set when
// path is empty.
func LoadProfiles(path string) (Profiles, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read profiles: %w", err)
	}
	return ParseProfiles(data)
}
