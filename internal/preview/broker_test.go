package preview

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	if b.ClientCount() != 0 {
		t.Fatal("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatal("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatal("expected 0 clients after unsubscribe")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPreview("p1", "<html><body>hi</body></html>")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: preview.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"project_id":"p1"`) {
			t.Errorf("missing project id in %q", s)
		}
		if !strings.Contains(s, "hi") {
			t.Errorf("missing document in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBrokerSafeAfterClose(t *testing.T) {
	b := NewBroker()
	b.Close()

	b.Publish(Event{Type: EventPreview})
	b.PublishProblems("p1", nil)
	b.Unsubscribe(make(chan []byte))
	if n := b.ClientCount(); n != 0 {
		t.Errorf("ClientCount() after close = %d", n)
	}

	ch := b.Subscribe()
	if _, ok := <-ch; ok {
		t.Error("Subscribe() after close returned an open channel")
	}
}

func TestCloseClosesClients(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("client channel not closed")
	}
}

func TestServeHTTPStreams(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.ServeHTTP(rec, req)
	}()

	// Wait for the handler to register its subscription.
	for i := 0; i < 100 && b.ClientCount() == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	if b.ClientCount() != 1 {
		t.Fatal("handler never subscribed")
	}

	b.PublishPreview("p1", "<p>doc</p>")
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: preview.updated") {
		t.Errorf("body missing event: %q", body)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
}
