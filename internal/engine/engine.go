// Package engine executes parsed chat commands against the conversation memory,
// the response generator and the image emitter.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/ink/internal/command"
	"github.com/ashureev/ink/internal/dataset"
	"github.com/ashureev/ink/internal/domain"
	"github.com/ashureev/ink/internal/generator"
	"github.com/ashureev/ink/internal/identity"
	"github.com/ashureev/ink/internal/images"
	"github.com/ashureev/ink/internal/memory"
)

// Fixed replies for commands that do not call the model.
const (
	ClearedResponse = "Memory cleared!"
	ClearedThinking = "Session reset"
	TrainThinking   = "Entering training mode"
	SVGThinking     = "Generating SVG image"

	// ThinkingWindow is the number of thoughts returned by Thinking by default.
	ThinkingWindow = 10
)

// ExampleRecorder receives chat exchanges made while training mode is active.
type ExampleRecorder interface {
	Enabled() bool
	Log(ex dataset.Example) error
}

// Engine owns one conversation and routes commands for it.
type Engine struct {
	memory    *memory.Memory
	responder *generator.Responder
	images    *images.Emitter
	recorder  ExampleRecorder
	now       func() time.Time

	mu          sync.RWMutex
	training    bool
	instruction string
}

// New creates an Engine.
func New(mem *memory.Memory, responder *generator.Responder, emitter *images.Emitter) *Engine {
	return &Engine{
		memory:    mem,
		responder: responder,
		images:    emitter,
		now:       time.Now,
	}
}

// SetClock overrides the time source used for image names.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SetRecorder sets where training examples are sent.
func (e *Engine) SetRecorder(r ExampleRecorder) {
	e.recorder = r
}

// Memory returns the conversation memory.
func (e *Engine) Memory() *memory.Memory {
	return e.memory
}

// Handle parses text and executes the resulting command.
func (e *Engine) Handle(ctx context.Context, text string) (domain.Reply, error) {
	return e.Execute(ctx, command.Parse(text))
}

// Execute runs cmd. Model failures are reported inside the reply; the error
// return carries storage and filesystem failures.
func (e *Engine) Execute(ctx context.Context, cmd command.Command) (domain.Reply, error) {
	switch cmd.Kind {
	case command.KindTrain:
		return e.train(ctx, cmd.Arg)
	case command.KindCode:
		return e.responder.GenerateCode(ctx, cmd.Arg)
	case command.KindSVG:
		return e.svg(cmd.Arg)
	case command.KindClear:
		if err := e.memory.Clear(ctx); err != nil {
			return domain.Reply{}, err
		}
		slog.Info("Conversation cleared")
		return domain.Reply{Response: ClearedResponse, Thinking: ClearedThinking, Kind: domain.ReplyOK}, nil
	default:
		reply, err := e.responder.Respond(ctx, cmd.Arg)
		if err == nil && reply.Kind == domain.ReplyOK {
			e.record(ctx, cmd.Arg, reply.Response)
		}
		return reply, err
	}
}

// TrainingMode reports whether a /train command has been received.
func (e *Engine) TrainingMode() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.training
}

// Instruction returns the most recent training instruction.
func (e *Engine) Instruction() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.instruction
}

// Thinking returns the last n thoughts joined by newlines.
func (e *Engine) Thinking(n int) string {
	if n <= 0 {
		n = ThinkingWindow
	}
	return generator.JoinThoughts(e.memory.RecentThoughts(n))
}

func (e *Engine) train(ctx context.Context, instruction string) (domain.Reply, error) {
	if err := e.memory.AppendThought(ctx, "Training instruction received: "+instruction); err != nil {
		return domain.Reply{}, err
	}

	e.mu.Lock()
	e.training = true
	e.instruction = instruction
	e.mu.Unlock()
	return domain.Reply{
		Response: "Training mode activated. Instruction: " + instruction,
		Thinking: TrainThinking,
		Kind:     domain.ReplyOK,
	}, nil
}

func (e *Engine) svg(description string) (domain.Reply, error) {
	name, err := e.images.Create(description, e.now())
	if err != nil {
		return domain.Reply{}, fmt.Errorf("emit svg: %w", err)
	}
	slog.Info("SVG emitted", "file", name, "shape", images.Classify(description).String())
	return domain.Reply{
		Response: "SVG created! View it at: /images/" + name,
		Thinking: SVGThinking,
		Kind:     domain.ReplyOK,
	}, nil
}

func (e *Engine) record(ctx context.Context, input, output string) {
	if e.recorder == nil || !e.recorder.Enabled() {
		return
	}
	e.mu.RLock()
	training, instruction := e.training, e.instruction
	e.mu.RUnlock()
	if !training {
		return
	}

	ex := dataset.Example{
		SessionID:   identity.SessionIDFromContext(ctx),
		Instruction: instruction,
		Input:       input,
		Output:      output,
		Timestamp:   e.now(),
	}
	if err := e.recorder.Log(ex); err != nil {
		slog.Warn("Failed to record training example", "error", err)
	}
}
