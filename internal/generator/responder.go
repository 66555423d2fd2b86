package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/ink/internal/domain"
	"github.com/ashureev/ink/internal/memory"
	"github.com/ashureev/ink/internal/shared"
)

const (
	// NotConfiguredResponse is returned when no credential is configured.
	NotConfiguredResponse = "Please configure GEMINI_API_KEY to use INK AI."
	// NotConfiguredThinking is the trace for NotConfiguredResponse.
	NotConfiguredThinking = "Model not initialized - API key missing"

	contextTurns   = 10
	replyThoughts  = 5
	inputPreviewLn = 50

	chatInstruction = "Respond as INK, an intelligent AI assistant. Be concise, accurate, and helpful. " +
		"If asked to generate code, provide clean, working code. If asked to create an SVG, describe what you'd create."
)

// Responder answers chat messages and code requests using the conversation memory.
type Responder struct {
	gen    TextGenerator
	memory *memory.Memory
}

// NewResponder creates a Responder. gen may be nil, in which case every
// generation call returns the not-configured reply.
func NewResponder(gen TextGenerator, mem *memory.Memory) *Responder {
	return &Responder{gen: gen, memory: mem}
}

// Configured reports whether a text generator is available.
func (r *Responder) Configured() bool {
	return r.gen != nil
}

func notConfiguredReply() domain.Reply {
	return domain.Reply{
		Response: NotConfiguredResponse,
		Thinking: NotConfiguredThinking,
		Kind:     domain.ReplyNotConfigured,
		Err:      ErrNotConfigured,
	}
}

// Respond answers a chat message with the recent conversation as context.
// Model failures are folded into the reply; the returned error is reserved for
// storage failures.
func (r *Responder) Respond(ctx context.Context, input string) (domain.Reply, error) {
	if r.gen == nil {
		return notConfiguredReply(), nil
	}

	if err := r.memory.AppendThought(ctx, fmt.Sprintf("Processing user input: %s...", shared.Truncate(input, inputPreviewLn))); err != nil {
		return domain.Reply{}, err
	}

	prompt := BuildChatPrompt(r.memory.RecentContext(contextTurns), input)

	if err := r.memory.AppendThought(ctx, "Generating response from Gemini..."); err != nil {
		return domain.Reply{}, err
	}

	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		errMsg := "Error: " + err.Error()
		if thoughtErr := r.memory.AppendThought(ctx, errMsg); thoughtErr != nil {
			return domain.Reply{}, thoughtErr
		}
		return domain.Reply{
			Response: "I encountered an error: " + err.Error(),
			Thinking: errMsg,
			Kind:     domain.ReplyGenerationFailed,
			Err:      err,
		}, nil
	}

	if err := r.memory.AppendTurn(ctx, domain.RoleUser, input); err != nil {
		return domain.Reply{}, err
	}
	if err := r.memory.AppendTurn(ctx, domain.RoleAssistant, text); err != nil {
		return domain.Reply{}, err
	}
	if err := r.memory.AppendThought(ctx, "Response generated successfully"); err != nil {
		return domain.Reply{}, err
	}

	return domain.Reply{
		Response: text,
		Thinking: JoinThoughts(r.memory.RecentThoughts(replyThoughts)),
		Kind:     domain.ReplyOK,
	}, nil
}

// GenerateCode asks the model for code only. No turns are recorded.
func (r *Responder) GenerateCode(ctx context.Context, description string) (domain.Reply, error) {
	if err := r.memory.AppendThought(ctx, "Code generation requested: "+description); err != nil {
		return domain.Reply{}, err
	}
	if r.gen == nil {
		return notConfiguredReply(), nil
	}

	code, err := r.gen.Generate(ctx, BuildCodePrompt(description))
	if err != nil {
		return domain.Reply{
			Response: "Error generating code: " + err.Error(),
			Thinking: "Generating code",
			Kind:     domain.ReplyGenerationFailed,
			Err:      err,
		}, nil
	}

	if err := r.memory.AppendThought(ctx, "Code generated successfully"); err != nil {
		return domain.Reply{}, err
	}
	return domain.Reply{Response: code, Thinking: "Generating code", Kind: domain.ReplyOK}, nil
}

// BuildChatPrompt renders turns as "role: content" lines followed by the new input.
func BuildChatPrompt(turns []domain.Turn, input string) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}

	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nUser: ")
	b.WriteString(input)
	b.WriteString("\n\n")
	b.WriteString(chatInstruction)
	return b.String()
}

// BuildCodePrompt renders the fixed code-generation template.
func BuildCodePrompt(description string) string {
	return "Generate clean, working, production-ready code for: " + description +
		"\n\nProvide only the code without explanations. Make it blazing fast and correct."
}

// JoinThoughts joins thought texts with newlines.
func JoinThoughts(entries []domain.ThoughtEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Thought
	}
	return strings.Join(parts, "\n")
}
