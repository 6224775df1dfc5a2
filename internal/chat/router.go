// Package chat routes a visitor message through the support cascade:
// session state, FAQ, intent, the sales confirmation flow and finally
// retrieval-augmented generation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wolfman30/supportchat/internal/chatlog"
	"github.com/wolfman30/supportchat/internal/faq"
	"github.com/wolfman30/supportchat/internal/intent"
	"github.com/wolfman30/supportchat/internal/knowledge"
	"github.com/wolfman30/supportchat/internal/llm"
	"github.com/wolfman30/supportchat/internal/memory"
	"github.com/wolfman30/supportchat/internal/notify"
	"github.com/wolfman30/supportchat/internal/session"
	"github.com/wolfman30/supportchat/pkg/logging"
)

var (
	// ErrInvalidInput is returned for a non-initial turn without a message.
	ErrInvalidInput = errors.New("chat: message is required")
	// ErrUpstreamGeneration is returned when the completion provider fails.
	ErrUpstreamGeneration = llm.ErrUpstreamGeneration
	// ErrSessionUnavailable is returned when the session store cannot be read.
	ErrSessionUnavailable = errors.New("chat: session store unavailable")
)

// Branch names the cascade step that produced a reply.
type Branch string

const (
	BranchInvalid         Branch = "invalid"
	BranchGreeting        Branch = "greeting"
	BranchSalesHandoff    Branch = "sales_handoff"
	BranchSalesContinue   Branch = "sales_continue"
	BranchFAQ             Branch = "faq"
	BranchLeadPrompt      Branch = "lead_prompt"
	BranchPricing         Branch = "pricing_deflection"
	BranchObjection       Branch = "objection"
	BranchRestricted      Branch = "restricted"
	BranchRAG             Branch = "rag"
	BranchFallback        Branch = "fallback"
	BranchGenerationError Branch = "generation_error"
)

// GenerationFailureSnapshot marks bot log entries written for a failed
// completion call.
const GenerationFailureSnapshot = "upstream_generation_failure"

// TurnInput is one inbound chat message.
type TurnInput struct {
	SessionID   string
	RemoteAddr  string
	Message     string
	Initial     bool
	Name        string
	Phone       string
	Email       string
	Personality string
}

// TurnOutput is the reply to a turn.
type TurnOutput struct {
	Response         string   `json:"response"`
	SuggestedButtons []string `json:"suggested_buttons,omitempty"`
	Branch           Branch   `json:"-"`
}

// Generator produces an answer grounded in retrieved passages.
type Generator interface {
	Generate(ctx context.Context, passages, userMessage, userName string) (string, error)
}

// TurnLogger records chat turns and contact details best-effort.
type TurnLogger interface {
	Log(ctx context.Context, userID, message string, sender chatlog.Sender, opts ...chatlog.LogOption)
	RegisterUser(ctx context.Context, name, email, phone string) int64
}

// TurnObserver counts answered turns per branch.
type TurnObserver interface {
	ObserveTurn(branch string)
}

// Deps are the collaborators of a Router. Memory and Metrics are optional.
type Deps struct {
	Sessions   session.Store
	FAQ        *faq.Matcher
	Classifier intent.Classifier
	Retriever  knowledge.Retriever
	Generator  Generator
	Notifier   notify.LeadNotifier
	ChatLog    TurnLogger
	Memory     *memory.Memory
	Metrics    TurnObserver
	Logger     *logging.Logger
}

type Option func(*Router)

// WithRetrievalK sets how many passages are retrieved per question.
func WithRetrievalK(k int) Option {
	return func(r *Router) {
		if k > 0 {
			r.retrievalK = k
		}
	}
}

// WithPhraseVariation rotates follow-up and acknowledgment phrasing through
// conversation memory instead of using the fixed FAQ continuation.
func WithPhraseVariation(enabled bool) Option {
	return func(r *Router) { r.phraseVariation = enabled }
}

func WithRestrictedTopics(topics []string) Option {
	return func(r *Router) {
		r.restricted = r.restricted[:0]
		for _, t := range topics {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				r.restricted = append(r.restricted, t)
			}
		}
	}
}

// Router runs the chat cascade. It holds no per-session state itself.
type Router struct {
	sessions   session.Store
	faq        *faq.Matcher
	classifier intent.Classifier
	retriever  knowledge.Retriever
	generator  Generator
	notifier   notify.LeadNotifier
	chatlog    TurnLogger
	memory     *memory.Memory
	metrics    TurnObserver
	logger     *logging.Logger

	retrievalK      int
	phraseVariation bool
	restricted      []string
	now             func() time.Time
}

func NewRouter(deps Deps, opts ...Option) *Router {
	switch {
	case deps.Sessions == nil:
		panic("chat: session store cannot be nil")
	case deps.FAQ == nil:
		panic("chat: faq matcher cannot be nil")
	case deps.Classifier == nil:
		panic("chat: classifier cannot be nil")
	case deps.Retriever == nil:
		panic("chat: retriever cannot be nil")
	case deps.Generator == nil:
		panic("chat: generator cannot be nil")
	case deps.Notifier == nil:
		panic("chat: lead notifier cannot be nil")
	case deps.ChatLog == nil:
		panic("chat: chat logger cannot be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	r := &Router{
		sessions:   deps.Sessions,
		faq:        deps.FAQ,
		classifier: deps.Classifier,
		retriever:  deps.Retriever,
		generator:  deps.Generator,
		notifier:   deps.Notifier,
		chatlog:    deps.ChatLog,
		memory:     deps.Memory,
		metrics:    deps.Metrics,
		logger:     logger,
		retrievalK: knowledge.DefaultTopK,
		restricted: slices.Clone(DefaultRestrictedTopics),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// UserID identifies the visitor in logs and memory: the session email when
// known, otherwise the remote address.
func UserID(s *session.Session, remoteAddr string) string {
	if s != nil && s.UserEmail != "" {
		return s.UserEmail
	}
	return remoteAddr
}

// HandleTurn processes one message for the session in in.SessionID. The
// returned output carries the user-facing reply even when err is non-nil.
func (r *Router) HandleTurn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" && !in.Initial {
		r.observe(BranchInvalid)
		return TurnOutput{Response: InvalidInputReply, Branch: BranchInvalid}, ErrInvalidInput
	}

	sess, err := r.sessions.Get(ctx, in.SessionID)
	if err != nil {
		return TurnOutput{}, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	name, email := strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)
	if name != "" && email != "" {
		userDBID := r.chatlog.RegisterUser(ctx, name, email, in.Phone)
		sess.BindContact(name, email, in.Phone, userDBID)
	}
	userID := UserID(sess, in.RemoteAddr)

	if p := memory.Personality(strings.ToLower(strings.TrimSpace(in.Personality))); p != "" && p.Valid() {
		sess.Personality = string(p)
		if r.memory != nil {
			r.memory.SetPersonality(userID, p)
		}
	}

	sess.MessageCount++
	if message != "" {
		r.chatlog.Log(ctx, userID, message, chatlog.SenderUser)
	}

	t := &turn{router: r, sess: sess, userID: userID, message: message, name: name}
	out, turnErr := t.route(ctx, in.Initial)

	sess.UpdatedAt = r.now().UTC()
	if err := r.sessions.Save(ctx, sess); err != nil {
		r.logger.Error("chat: failed to save session", "error", err, "branch", out.Branch)
	}
	if r.memory != nil && out.Response != "" {
		r.memory.RecordTurn(userID, message, out.Response)
	}
	r.observe(out.Branch)
	return out, turnErr
}

func (r *Router) observe(b Branch) {
	if r.metrics != nil {
		r.metrics.ObserveTurn(string(b))
	}
}

// turn holds the state of one HandleTurn call.
type turn struct {
	router  *Router
	sess    *session.Session
	userID  string
	message string
	name    string
}

func (t *turn) route(ctx context.Context, initial bool) (TurnOutput, error) {
	r, sess := t.router, t.sess

	if initial && (!sess.GreetingSent || t.message == "") {
		sess.GreetingSent = true
		return t.reply(ctx, BranchGreeting, GreetingReply(t.visitorName()), nil), nil
	}

	if sess.AwaitingSalesConfirm {
		sess.AwaitingSalesConfirm = false
		if strings.Contains(strings.ToLower(t.message), "yes") {
			return t.reply(ctx, BranchSalesHandoff, HandoffUnavailableReply, YesNoButtons), nil
		}
		return t.reply(ctx, BranchSalesContinue, ContinueReply, nil), nil
	}

	if entry, ok := r.faq.Match(t.message); ok {
		return t.reply(ctx, BranchFAQ, t.ackPrefix()+entry.Answer+t.faqSuffix(), nil,
			chatlog.WithIntent("faq"), chatlog.WithSalesFlag(false)), nil
	}

	label := r.classifier.Classify(ctx, t.message)
	intentOpt := chatlog.WithIntent(string(label))

	if label == intent.Interest && !sess.ProspectPrompted {
		sess.ProspectPrompted = true
		sess.AwaitingSalesConfirm = true
		lead := notify.Lead{Name: sess.UserName, Email: sess.UserEmail, Phone: sess.UserPhone, Message: t.message}
		if err := r.notifier.NotifyLead(ctx, lead); err != nil {
			r.logger.Warn("chat: lead notification failed", "error", err)
		}
		return t.reply(ctx, BranchLeadPrompt, SalesPromptReply, YesNoButtons, intentOpt, chatlog.WithSalesFlag(true)), nil
	}

	switch label {
	case intent.Inquiry:
		sess.InquiryCount++
		if sess.InquiryCount == 1 {
			return t.reply(ctx, BranchPricing, PricingDeflectionReply, nil, intentOpt), nil
		}
		return t.answer(ctx, intentOpt)
	case intent.Objection:
		return t.reply(ctx, BranchObjection, ObjectionReply, nil, intentOpt), nil
	}

	if t.restricted() {
		return t.reply(ctx, BranchRestricted, RestrictedReply, nil, intentOpt), nil
	}
	return t.answer(ctx, intentOpt)
}

// answer retrieves passages and generates a grounded reply, falling back to
// a fixed message when nothing relevant is indexed.
func (t *turn) answer(ctx context.Context, intentOpt chatlog.LogOption) (TurnOutput, error) {
	r := t.router
	passages, ok, err := r.retriever.Retrieve(ctx, t.message, r.retrievalK)
	if err != nil {
		r.logger.Error("chat: retrieval failed, using fallback", "error", err)
		ok = false
	}
	if !ok {
		return t.reply(ctx, BranchFallback, FallbackReply, nil, intentOpt), nil
	}

	answer, err := r.generator.Generate(ctx, passages, t.message, t.visitorName())
	if err != nil {
		if !errors.Is(err, ErrUpstreamGeneration) {
			err = fmt.Errorf("%w: %v", ErrUpstreamGeneration, err)
		}
		out := t.reply(ctx, BranchGenerationError, GenerationErrorReply, nil,
			intentOpt, chatlog.WithContextSnapshot(GenerationFailureSnapshot))
		return out, err
	}
	return t.reply(ctx, BranchRAG, t.ackPrefix()+answer, nil, intentOpt), nil
}

func (t *turn) reply(ctx context.Context, branch Branch, text string, buttons []string, opts ...chatlog.LogOption) TurnOutput {
	t.router.chatlog.Log(ctx, t.userID, text, chatlog.SenderBot, opts...)
	return TurnOutput{Response: text, SuggestedButtons: slices.Clone(buttons), Branch: branch}
}

func (t *turn) restricted() bool {
	lower := strings.ToLower(t.message)
	for _, topic := range t.router.restricted {
		if strings.Contains(lower, topic) {
			return true
		}
	}
	return false
}

// visitorName prefers the name sent with the request over the session's.
func (t *turn) visitorName() string {
	if t.name != "" {
		return t.name
	}
	return t.sess.UserName
}

func (t *turn) faqSuffix() string {
	if t.router.phraseVariation && t.router.memory != nil {
		if phrase := t.router.memory.Phrase(t.userID, memory.FollowUp); phrase != "" {
			return "<br><br>" + phrase
		}
	}
	return FAQSuffix
}

// ackPrefix acknowledges thanks when phrase variation is on.
func (t *turn) ackPrefix() string {
	if !t.router.phraseVariation || t.router.memory == nil {
		return ""
	}
	lower := strings.ToLower(t.message)
	for _, w := range []string{"thanks", "thank you", "appreciate"} {
		if strings.Contains(lower, w) {
			if ack := t.router.memory.Phrase(t.userID, memory.Acknowledgment); ack != "" {
				return ack + "<br><br>"
			}
			return ""
		}
	}
	return ""
}
