// Package memory remembers recent turns per visitor and rotates phrasing so
// the assistant does not repeat the same greeting or follow-up.
package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxConversations = 100
	DefaultMaxTurns         = 20
	DefaultContextTurns     = 5

	// recentWindow is how many of the most recently used phrases are avoided.
	recentWindow = 3
	// regreetAfter is the number of turns after which a visitor is greeted again.
	regreetAfter = 10
)

type Kind int

const (
	Greeting Kind = iota
	FollowUp
	Acknowledgment
)

func (k Kind) String() string {
	switch k {
	case Greeting:
		return "greeting"
	case FollowUp:
		return "follow_up"
	case Acknowledgment:
		return "acknowledgment"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Turn struct {
	Number      int       `json:"turn_number"`
	Timestamp   time.Time `json:"timestamp"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
}

type conversation struct {
	StartedAt           time.Time   `json:"started_at"`
	LastInteraction     time.Time   `json:"last_interaction"`
	Turns               []Turn      `json:"turns"`
	Personality         Personality `json:"personality"`
	GreetingsUsed       []string    `json:"greetings_used"`
	FollowUpsUsed       []string    `json:"follow_ups_used"`
	AcknowledgmentsUsed []string    `json:"acknowledgments_used"`
}

func (c *conversation) used(kind Kind) *[]string {
	switch kind {
	case Greeting:
		return &c.GreetingsUsed
	case FollowUp:
		return &c.FollowUpsUsed
	default:
		return &c.AcknowledgmentsUsed
	}
}

// Summary describes a visitor's conversation so far.
type Summary struct {
	UserID                   string      `json:"user_id"`
	TotalTurns               int         `json:"total_turns"`
	ConversationStarted      time.Time   `json:"conversation_started"`
	LastInteraction          time.Time   `json:"last_interaction"`
	Personality              Personality `json:"personality"`
	ShouldGreet              bool        `json:"should_greet"`
	GreetingsUsedCount       int         `json:"greetings_used_count"`
	FollowUpsUsedCount       int         `json:"follow_ups_used_count"`
	AcknowledgmentsUsedCount int         `json:"acknowledgments_used_count"`
	RecentContext            string      `json:"recent_context,omitempty"`
}

// Memory is safe for concurrent use.
type Memory struct {
	mu               sync.Mutex
	conversations    map[string]*conversation
	phrases          Phrases
	profiles         Profiles
	maxConversations int
	maxTurns         int
	now              func() time.Time
	pick             func(n int) int
}

type Option func(*Memory)

func WithMaxConversations(n int) Option {
	return func(m *Memory) {
		if n > 0 {
			m.maxConversations = n
		}
	}
}

func WithMaxTurns(n int) Option {
	return func(m *Memory) {
		if n > 0 {
			m.maxTurns = n
		}
	}
}

func WithPhrases(p Phrases) Option {
	return func(m *Memory) { m.phrases = p }
}

func WithProfiles(p Profiles) Option {
	return func(m *Memory) { m.profiles = p }
}

func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// WithPicker replaces the random index source; pick(n) must return [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(m *Memory) { m.pick = pick }
}

func New(opts ...Option) *Memory {
	m := &Memory{
		conversations:    make(map[string]*conversation),
		phrases:          DefaultPhrases(),
		profiles:         DefaultProfiles(),
		maxConversations: DefaultMaxConversations,
		maxTurns:         DefaultMaxTurns,
		now:              time.Now,
		pick:             rand.IntN,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// conversationLocked returns the record for user, creating it (and evicting
// the least recently active visitor when full).
func (m *Memory) conversationLocked(user string) *conversation {
	if c, ok := m.conversations[user]; ok {
		return c
	}
	if len(m.conversations) >= m.maxConversations {
		m.evictOldestLocked()
	}
	now := m.now()
	c := &conversation{StartedAt: now, LastInteraction: now, Personality: DefaultPersonality}
	m.conversations[user] = c
	return c
}

func (m *Memory) evictOldestLocked() {
	var oldestUser string
	var oldest time.Time
	for user, c := range m.conversations {
		if oldestUser == "" || c.LastInteraction.Before(oldest) {
			oldestUser, oldest = user, c.LastInteraction
		}
	}
	delete(m.conversations, oldestUser)
}

// RecordTurn appends a turn, keeping only the most recent turns, and notes
// any known phrases the bot used.
func (m *Memory) RecordTurn(user, userMessage, botResponse string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.conversationLocked(user)
	now := m.now()
	c.Turns = append(c.Turns, Turn{
		Number:      len(c.Turns) + 1,
		Timestamp:   now,
		UserMessage: userMessage,
		BotResponse: botResponse,
	})
	c.LastInteraction = now
	if len(c.Turns) > m.maxTurns {
		c.Turns = append([]Turn(nil), c.Turns[len(c.Turns)-m.maxTurns:]...)
	}

	lower := strings.ToLower(botResponse)
	for _, kind := range []Kind{Greeting, FollowUp, Acknowledgment} {
		for _, phrase := range m.phrases.list(kind) {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				used := c.used(kind)
				*used = append(*used, phrase)
				break
			}
		}
	}
}

// Unused picks a phrase of the given kind from the default set that is not
// among the visitor's last three. When every phrase is recent the history is
// reset.
func (m *Memory) Unused(user string, kind Kind) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unusedLocked(m.conversationLocked(user), kind, m.phrases.list(kind))
}

func (m *Memory) UnusedGreeting(user string) string       { return m.Unused(user, Greeting) }
func (m *Memory) UnusedFollowUp(user string) string       { return m.Unused(user, FollowUp) }
func (m *Memory) UnusedAcknowledgment(user string) string { return m.Unused(user, Acknowledgment) }

// Phrase picks an unused phrase from the visitor's personality profile,
// falling back to the default set when the profile has none of that kind.
func (m *Memory) Phrase(user string, kind Kind) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.conversationLocked(user)
	candidates := m.phrases.list(kind)
	if profile, ok := m.profiles[c.Personality]; ok {
		if list := profile.list(kind); len(list) > 0 {
			candidates = list
		}
	}
	return m.unusedLocked(c, kind, candidates)
}

func (m *Memory) unusedLocked(c *conversation, kind Kind, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	used := c.used(kind)
	recent := *used
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}

	var fresh []string
	for _, p := range candidates {
		if !slices.Contains(recent, p) {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		*used = nil
		fresh = candidates
	}

	choice := fresh[m.pick(len(fresh))]
	*used = append(*used, choice)
	return choice
}

// ShouldGreet reports whether the visitor is new or has gone ten turns
// without a greeting.
func (m *Memory) ShouldGreet(user string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[user]
	if !ok {
		return true
	}
	return m.shouldGreetLocked(c)
}

func (m *Memory) shouldGreetLocked(c *conversation) bool {
	if len(c.Turns) == 0 {
		return true
	}
	lastGreeting := 0
	for i, turn := range c.Turns {
		lower := strings.ToLower(turn.BotResponse)
		for _, g := range m.phrases.Greetings {
			if strings.Contains(lower, strings.ToLower(g)) {
				lastGreeting = i
				break
			}
		}
	}
	return len(c.Turns)-lastGreeting >= regreetAfter
}

// recentContext renders up to maxTurns recent turns as "User:"/"Assistant:" lines.
func (m *Memory) recentContext(user string, maxTurns int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[user]
	if !ok {
		return ""
	}
	return renderTurns(c, maxTurns)
}

func renderTurns(c *conversation, maxTurns int) string {
	if maxTurns <= 0 {
		maxTurns = DefaultContextTurns
	}
	if len(c.Turns) == 0 {
		return ""
	}
	turns := c.Turns
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	lines := make([]string, 0, 2*len(turns))
	for _, t := range turns {
		lines = append(lines, "User: "+t.UserMessage, "Assistant: "+t.BotResponse)
	}
	return strings.Join(lines, "\n")
}

func (m *Memory) Personality(user string) Personality {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conversations[user]; ok {
		return c.Personality
	}
	return DefaultPersonality
}

// SetPersonality ignores values that are not a known personality.
func (m *Memory) SetPersonality(user string, p Personality) bool {
	if !p.Valid() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversationLocked(user).Personality = p
	return true
}

func (m *Memory) Summary(user string) Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{UserID: user, Personality: DefaultPersonality, ShouldGreet: true}
	c, ok := m.conversations[user]
	if !ok {
		return s
	}
	s.TotalTurns = len(c.Turns)
	s.ConversationStarted = c.StartedAt
	s.LastInteraction = c.LastInteraction
	s.Personality = c.Personality
	s.ShouldGreet = m.shouldGreetLocked(c)
	s.GreetingsUsedCount = len(c.GreetingsUsed)
	s.FollowUpsUsedCount = len(c.FollowUpsUsed)
	s.AcknowledgmentsUsedCount = len(c.AcknowledgmentsUsed)
	s.RecentContext = renderTurns(c, DefaultContextTurns)
	return s
}

// Cleanup forgets visitors idle for longer than maxAge and returns how many
// were removed.
func (m *Memory) Cleanup(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxAge)
	removed := 0
	for user, c := range m.conversations {
		if c.LastInteraction.Before(cutoff) {
			delete(m.conversations, user)
			removed++
		}
	}
	return removed
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}

type snapshot struct {
	Conversations map[string]*conversation `json:"conversations"`
	SavedAt       time.Time                `json:"saved_at"`
}

// Save writes every conversation as JSON.
func (m *Memory) Save(w io.Writer) error {
	m.mu.Lock()
	snap := snapshot{Conversations: m.conversations, SavedAt: m.now()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(snap)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("memory: save: %w", err)
	}
	return nil
}

// Load replaces the current conversations with a snapshot written by Save.
// When the snapshot holds more visitors than allowed, the most recently
// active are kept.
func (m *Memory) Load(r io.Reader) error {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("memory: load: %w", err)
	}

	users := make([]string, 0, len(snap.Conversations))
	for user, c := range snap.Conversations {
		if c == nil {
			continue
		}
		if !c.Personality.Valid() {
			c.Personality = DefaultPersonality
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return snap.Conversations[users[i]].LastInteraction.After(snap.Conversations[users[j]].LastInteraction)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = make(map[string]*conversation, len(users))
	for i, user := range users {
		if i >= m.maxConversations {
			break
		}
		m.conversations[user] = snap.Conversations[user]
	}
	return nil
}
