package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantArg  string
	}{
		{name: "train", input: "/train be terse", wantKind: KindTrain, wantArg: "be terse"},
		{name: "code", input: "/code fizzbuzz in go", wantKind: KindCode, wantArg: "fizzbuzz in go"},
		{name: "svg", input: "/svg a red square", wantKind: KindSVG, wantArg: "a red square"},
		{name: "clear", input: "/clear", wantKind: KindClear, wantArg: ""},
		{name: "code wins over svg in remainder", input: "/code /svg draw a circle", wantKind: KindCode, wantArg: "/svg draw a circle"},
		{name: "case sensitive", input: "/CODE hello", wantKind: KindChat, wantArg: "/CODE hello"},
		{name: "prefix must lead", input: "please /code this", wantKind: KindChat, wantArg: "please /code this"},
		{name: "plain chat keeps spacing", input: "  hi there ", wantKind: KindChat, wantArg: "  hi there "},
		{name: "empty", input: "", wantKind: KindChat, wantArg: ""},
		{name: "extra whitespace trimmed", input: "/svg    star  ", wantKind: KindSVG, wantArg: "star"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantArg, got.Arg)
			assert.Equal(t, tt.input, got.Raw)
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "chat", KindChat.String())
	assert.Equal(t, "train", KindTrain.String())
	assert.Equal(t, "code", KindCode.String())
	assert.Equal(t, "svg", KindSVG.String())
	assert.Equal(t, "clear", KindClear.String())
}
