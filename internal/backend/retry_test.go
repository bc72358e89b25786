package backend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mockbird/mockbird/internal/log"
)

type fakeClient struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (string, error)
}

func (f *fakeClient) Name() string { return "fake/model" }

func (f *fakeClient) Generate(ctx context.Context, req Request, cb StreamCallback) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	text, err := f.fn(call)
	if err == nil && cb != nil {
		if cbErr := cb(ctx, text); cbErr != nil {
			return "", cbErr
		}
	}
	return text, err
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastRetry() ReliableConfig {
	return ReliableConfig{
		Retry: RetryConfig{
			MaxRetries:      3,
			InitialInterval: time.Millisecond,
			MaxInterval:     4 * time.Millisecond,
		},
		RequestsPerMin: 6000,
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 rate limit exceeded"), true},
		{"server error", errors.New("HTTP 503 Service Unavailable"), true},
		{"overloaded", errors.New("Overloaded: 529"), true},
		{"timeout", errors.New("dial tcp: i/o timeout"), true},
		{"auth failure", errors.New("401 unauthorized"), false},
		{"bad request", errors.New("invalid request payload"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestReliableRetriesTransientFailures(t *testing.T) {
	inner := &fakeClient{fn: func(call int) (string, error) {
		if call < 3 {
			return "", errors.New("503 unavailable")
		}
		return "recovered", nil
	}}
	client := NewReliable(inner, fastRetry(), log.NewNop())

	got, err := client.Generate(context.Background(), Request{Prompt: "p"}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "recovered" {
		t.Errorf("text = %q", got)
	}
	if inner.callCount() != 3 {
		t.Errorf("attempts = %d, want 3", inner.callCount())
	}
}

func TestReliableFailsFastOnPermanentErrors(t *testing.T) {
	inner := &fakeClient{fn: func(call int) (string, error) {
		return "", errors.New("401 unauthorized")
	}}
	client := NewReliable(inner, fastRetry(), log.NewNop())

	_, err := client.Generate(context.Background(), Request{Prompt: "p"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.callCount() != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on permanent failure)", inner.callCount())
	}
}

func TestReliableDoesNotRetryStreamedCalls(t *testing.T) {
	inner := &fakeClient{fn: func(call int) (string, error) {
		return "", errors.New("503 unavailable")
	}}
	client := NewReliable(inner, fastRetry(), log.NewNop())

	var chunks []string
	cb := func(ctx context.Context, chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	}
	_, err := client.Generate(context.Background(), Request{Prompt: "p"}, cb)
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.callCount() != 1 {
		t.Errorf("attempts = %d, want 1 (streamed calls never retry)", inner.callCount())
	}
	if len(chunks) != 0 {
		t.Errorf("callback received %d chunks from failed attempts", len(chunks))
	}
}

func TestReliableExhaustsRetries(t *testing.T) {
	inner := &fakeClient{fn: func(call int) (string, error) {
		return "", errors.New("connection reset by peer")
	}}
	client := NewReliable(inner, fastRetry(), log.NewNop())

	_, err := client.Generate(context.Background(), Request{Prompt: "p"}, nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "retries") {
		t.Errorf("error should mention retries: %v", err)
	}
	if inner.callCount() != 4 {
		t.Errorf("attempts = %d, want 4 (1 + 3 retries)", inner.callCount())
	}
}

func TestReliableContextCancelDuringBackoff(t *testing.T) {
	inner := &fakeClient{fn: func(call int) (string, error) {
		return "", errors.New("503 unavailable")
	}}
	cfg := fastRetry()
	cfg.Retry.InitialInterval = time.Minute
	client := NewReliable(inner, cfg, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Generate(ctx, Request{Prompt: "p"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}

func TestReliableBreakerOpensAndRejects(t *testing.T) {
	inner := &fakeClient{fn: func(call int) (string, error) {
		return "", errors.New("401 unauthorized")
	}}
	cfg := fastRetry()
	cfg.Breaker = BreakerConfig{FailureThreshold: 2, CoolDown: time.Hour}
	client := NewReliable(inner, cfg, log.NewNop())

	for range 2 {
		if _, err := client.Generate(context.Background(), Request{Prompt: "p"}, nil); err == nil {
			t.Fatal("expected failure")
		}
	}
	if client.Breaker().State() != CircuitOpen {
		t.Fatalf("breaker state = %v, want open", client.Breaker().State())
	}

	_, err := client.Generate(context.Background(), Request{Prompt: "p"}, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if inner.callCount() != 2 {
		t.Errorf("open breaker still reached the provider: %d calls", inner.callCount())
	}
}
