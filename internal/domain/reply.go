package domain

// ReplyKind categorizes how a reply was produced.
type ReplyKind string

const (
	// ReplyOK indicates a normal response.
	ReplyOK ReplyKind = "ok"
	// ReplyNotConfigured indicates text generation has no credential.
	ReplyNotConfigured ReplyKind = "not_configured"
	// ReplyGenerationFailed indicates the model call failed and the error was turned into text.
	ReplyGenerationFailed ReplyKind = "generation_failed"
)

// Reply is the user-facing answer plus its diagnostic trace.
type Reply struct {
	Response string
	Thinking string
	Kind     ReplyKind
	// Err holds the generation error when Kind is ReplyGenerationFailed.
	Err error
}

// Failed reports whether the reply carries a generation failure.
func (r Reply) Failed() bool {
	return r.Kind == ReplyGenerationFailed
}
