// Package testutil provides test doubles shared across packages.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/mockbird/mockbird/internal/backend"
)

// MockClient is a deterministic backend.Client for tests. It matches the
// request prompt against registered patterns and returns the corresponding
// response, streaming it in fixed-size chunks when a callback is given.
//
// Thread-safe for concurrent use.
type MockClient struct {
	mu        sync.Mutex
	rules     []mockRule
	fallback  string
	chunkSize int
	calls     []backend.Request
}

type mockRule struct {
	pattern  string // substring match in the prompt, lowercase
	response string
	err      error
}

// NewMockClient creates a mock with the given fallback response, returned
// when no pattern matches.
func NewMockClient(fallback string) *MockClient {
	return &MockClient{fallback: fallback, chunkSize: 16}
}

// AddResponse registers a pattern-response pair. Prompts containing the
// pattern (case-insensitive) get the response; first match wins.
func (m *MockClient) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: response})
}

// AddError registers a pattern that fails with err.
func (m *MockClient) AddError(pattern string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), err: err})
}

// SetChunkSize controls how the response is split when streaming.
func (m *MockClient) SetChunkSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.chunkSize = n
	}
}

// Calls returns a copy of every request seen so far.
func (m *MockClient) Calls() []backend.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]backend.Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of requests seen.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Name implements backend.Client.
func (m *MockClient) Name() string { return "mock/test-model" }

// Generate implements backend.Client.
func (m *MockClient) Generate(ctx context.Context, req backend.Request, cb backend.StreamCallback) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	response := m.fallback
	var err error
	lower := strings.ToLower(req.Prompt)
	for _, rule := range m.rules {
		if strings.Contains(lower, rule.pattern) {
			response, err = rule.response, rule.err
			break
		}
	}
	size := m.chunkSize
	m.mu.Unlock()

	if err != nil {
		return "", err
	}

	if cb != nil {
		for start := 0; start < len(response); start += size {
			end := min(start+size, len(response))
			if cbErr := cb(ctx, response[start:end]); cbErr != nil {
				return "", cbErr
			}
		}
	}
	return response, nil
}
