// Package command turns raw chat input into a typed command.
package command

import "strings"

// Kind identifies which behavior a message requests.
type Kind int

const (
	// KindChat is a plain chat message.
	KindChat Kind = iota
	// KindTrain switches on training mode with an instruction.
	KindTrain
	// KindCode asks for generated code.
	KindCode
	// KindSVG asks for a vector image.
	KindSVG
	// KindClear wipes the conversation.
	KindClear
)

func (k Kind) String() string {
	switch k {
	case KindTrain:
		return "train"
	case KindCode:
		return "code"
	case KindSVG:
		return "svg"
	case KindClear:
		return "clear"
	default:
		return "chat"
	}
}

// Command is a parsed chat input.
type Command struct {
	Kind Kind
	// Arg is the text after the prefix, trimmed. For KindChat it is the whole input.
	Arg string
	// Raw is the original input.
	Raw string
}

// prefixes are checked in order; the first match wins.
var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{"/train", KindTrain},
	{"/code", KindCode},
	{"/svg", KindSVG},
	{"/clear", KindClear},
}

// Parse classifies text by case-sensitive literal prefix.
func Parse(text string) Command {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(text, p.prefix); ok {
			return Command{Kind: p.kind, Arg: strings.TrimSpace(rest), Raw: text}
		}
	}
	return Command{Kind: KindChat, Arg: text, Raw: text}
}
