package cron

import (
	"context"
	"fmt"
	"testing"
)

func TestInMemoryEventSink_FIFOPerSession(t *testing.T) {
	t.Parallel()

	sink := NewInMemoryEventSink()
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		if err := sink.Enqueue(ctx, "sess-a", text); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if err := sink.Enqueue(ctx, "sess-b", "other"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	got := sink.Events("sess-a")
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("Events(sess-a) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Events(sess-a)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if other := sink.Events("sess-b"); len(other) != 1 || other[0] != "other" {
		t.Errorf("Events(sess-b) = %v, want [other]", other)
	}
}

func TestInMemoryEventSink_DropsOldestOnOverflow(t *testing.T) {
	t.Parallel()

	sink := NewInMemoryEventSink()
	ctx := context.Background()

	for i := 0; i < maxBufferedEvents+5; i++ {
		if err := sink.Enqueue(ctx, "sess", fmt.Sprintf("event-%d", i)); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	got := sink.Events("sess")
	if len(got) != maxBufferedEvents {
		t.Fatalf("buffer length = %d, want %d", len(got), maxBufferedEvents)
	}
	if got[0] != "event-5" {
		t.Errorf("oldest surviving event = %q, want event-5", got[0])
	}
	if got[len(got)-1] != fmt.Sprintf("event-%d", maxBufferedEvents+4) {
		t.Errorf("newest event = %q, want event-%d", got[len(got)-1], maxBufferedEvents+4)
	}
}
