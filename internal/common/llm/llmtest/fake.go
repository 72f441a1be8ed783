// Package llmtest provides a scripted llm.Generator for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"google.golang.org/genai"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/llm"
)

// Call records one request made to the fake.
type Call struct {
	Op      string
	Prompt  string
	System  string
	History []llm.Message
}

// Fake answers each operation with a canned response. JSON operations decode
// the response string into the caller's value. Operations listed in Errors
// fail; operations with no response fail with llm.ErrEmptyResponse.
type Fake struct {
	mu        sync.Mutex
	Responses map[string]string
	Errors    map[string]error
	calls     []Call
}

func New() *Fake {
	return &Fake{Responses: map[string]string{}, Errors: map[string]error{}}
}

// Respond sets the canned answer for op.
func (f *Fake) Respond(op, response string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[op] = response
	return f
}

// Fail makes op return err.
func (f *Fake) Fail(op string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[op] = err
	return f
}

func (f *Fake) answer(c Call) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if err, ok := f.Errors[c.Op]; ok {
		return "", commonerrors.NewAIGenerationError(c.Op, err)
	}
	resp, ok := f.Responses[c.Op]
	if !ok {
		return "", commonerrors.NewAIGenerationError(c.Op, llm.ErrEmptyResponse)
	}
	return resp, nil
}

func (f *Fake) GenerateText(_ context.Context, op, prompt string) (string, error) {
	return f.answer(Call{Op: op, Prompt: prompt})
}

func (f *Fake) GenerateJSON(_ context.Context, op, prompt string, _ *genai.Schema, out interface{}) error {
	resp, err := f.answer(Call{Op: op, Prompt: prompt})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(resp), out); err != nil {
		return commonerrors.NewAIGenerationError(op, fmt.Errorf("decode JSON response: %w", err))
	}
	return nil
}

func (f *Fake) GenerateWithImage(_ context.Context, op, prompt string, _ []byte, _ string) (string, error) {
	return f.answer(Call{Op: op, Prompt: prompt})
}

func (f *Fake) Chat(_ context.Context, op, system string, history []llm.Message, message string) (string, error) {
	return f.answer(Call{Op: op, Prompt: message, System: system, History: history})
}

// Calls returns the recorded requests in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the recorded requests for op.
func (f *Fake) CallsFor(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

var _ llm.Generator = (*Fake)(nil)
