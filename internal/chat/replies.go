package chat

import "fmt"

// Fixed replies of the cascade.
const (
	HandoffUnavailableReply = "Sorry, no sales rep is online. Would you like to email us the details?"
	ContinueReply           = "Alright! I'm here to help with anything else you need."
	FAQSuffix               = "<br><br>Can I help you with anything else?"
	SalesPromptReply        = "Thanks for your interest! Would you like to chat with our <b>sales representative</b>?"
	PricingDeflectionReply  = "I can help with pricing or package options. Could you tell me more about your needs?"
	ObjectionReply          = "That's totally understandable. Let me know if you'd like more info or a free consultation."
	RestrictedReply         = "Sorry, I can't discuss that. Let’s stick to support-related topics."
	FallbackReply           = "Sorry, I can only answer questions about SourceSelect and the information I've been provided."
	GenerationErrorReply    = "Error contacting the AI model."
	InvalidInputReply       = "No input provided."
)

// DefaultRestrictedTopics are refused outright when they appear in a message.
var DefaultRestrictedTopics = []string{"politics", "religion", "training data"}

// YesNoButtons are the suggested replies offered with yes/no questions.
var YesNoButtons = []string{"Yes", "No"}

// SuggestedMessages seed the widget before the first turn.
var SuggestedMessages = []string{
	"What services do you offer?",
	"Can you help me with branding?",
	"How do I start a project?",
	"Who is the CEO of SourceSelect?",
	"Can you give me your address?",
	"Do you offer web development?",
}

// GreetingReply addresses the visitor by name, or "there" when unknown.
func GreetingReply(name string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("I'm happy to help! Hi %s! What can I help you with today?", name)
}
