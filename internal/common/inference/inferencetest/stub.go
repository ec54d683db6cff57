// Package inferencetest provides a deterministic inference.Model for tests.
package inferencetest

import (
	"context"
	"sync"

	"clientatech-agent/internal/common/inference"
)

// Reply is one scripted model answer.
type Reply struct {
	Text string
	Err  error
}

// Stub answers either from a responder function or from a script. It is safe
// for concurrent use and records every prompt it receives.
type Stub struct {
	mu      sync.Mutex
	name    string
	respond func(inference.Prompt, inference.Params) (string, error)
	script  []Reply
	prompts []inference.Prompt
	params  []inference.Params
}

// NewStub answers every call with respond.
func NewStub(name string, respond func(inference.Prompt, inference.Params) (string, error)) *Stub {
	return &Stub{name: name, respond: respond}
}

// NewScripted pops replies in order and repeats the last one once exhausted.
func NewScripted(name string, replies ...Reply) *Stub {
	return &Stub{name: name, script: replies}
}

// Fixed always returns text.
func Fixed(name, text string) *Stub {
	return NewScripted(name, Reply{Text: text})
}

func (s *Stub) Name() string {
	return s.name
}

func (s *Stub) Infer(ctx context.Context, prompt inference.Prompt, params inference.Params) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.params = append(s.params, params)
	respond := s.respond
	var reply Reply
	if respond == nil && len(s.script) > 0 {
		reply = s.script[0]
		if len(s.script) > 1 {
			s.script = s.script[1:]
		}
	}
	s.mu.Unlock()

	if respond != nil {
		return respond(prompt, params)
	}
	return reply.Text, reply.Err
}

// Calls returns how many times Infer ran.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// Prompts returns a copy of every prompt received.
func (s *Stub) Prompts() []inference.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inference.Prompt(nil), s.prompts...)
}

// LastParams returns the params of the most recent call.
func (s *Stub) LastParams() inference.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.params) == 0 {
		return inference.Params{}
	}
	return s.params[len(s.params)-1]
}
