// Package backend abstracts the text-generation service the studio talks
// to. A Client turns one prompt into one finite streamed response; provider
// implementations exist for genkit (Gemini, OpenAI-compatible, Ollama) and
// for the Anthropic SDK. Reliability concerns (retry, circuit breaking,
// rate limiting) wrap a Client rather than living inside one.
package backend

import "context"

// StreamCallback receives response fragments as they arrive. Fragment
// boundaries are arbitrary; callers must be safe to concatenate chunks of
// any size. Returning an error aborts the stream.
type StreamCallback func(ctx context.Context, chunk string) error

// Request is one generation request. The full conversation state is always
// carried in the prompt; the backend is stateless between calls.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Client produces one complete response per request. When cb is non-nil it
// observes the response incrementally; the returned string is always the
// complete concatenated text. The stream is finite and not restartable.
type Client interface {
	Generate(ctx context.Context, req Request, cb StreamCallback) (string, error)

	// Name identifies the provider in logs.
	Name() string
}
