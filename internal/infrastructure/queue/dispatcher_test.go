package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sonbon03/vinhxuan-mono-sub003/internal/core/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	err    error
}

func (s *recordingSink) Write(_ context.Context, e domain.AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func TestDispatcher_PreservesPerActorOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(4, sink, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 50; i++ {
		d.Record(domain.AuthEvent{Type: domain.EventLoginFailed, Subject: "u1", Reason: fmt.Sprint(i)})
		d.Record(domain.AuthEvent{Type: domain.EventLoginFailed, Subject: "u2", Reason: fmt.Sprint(i)})
	}
	d.Close()

	if len(sink.events) != 100 {
		t.Fatalf("expected 100 events written, got %d", len(sink.events))
	}
	next := map[string]int{}
	for _, e := range sink.events {
		if e.Reason != fmt.Sprint(next[e.Subject]) {
			t.Fatalf("out of order event for %s: got %s, want %d", e.Subject, e.Reason, next[e.Subject])
		}
		next[e.Subject]++
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, &recordingSink{}, zerolog.Nop())

	// Workers not started: the buffer fills and further events are dropped
	// without blocking.
	for i := 0; i < channelBuffer+10; i++ {
		d.Record(domain.AuthEvent{Type: domain.EventLogout, Subject: "u1"})
	}
	if got := len(d.workers[0]); got != channelBuffer {
		t.Fatalf("expected full buffer of %d, got %d", channelBuffer, got)
	}
	d.Close()
}

func TestDispatcher_RecordAfterCloseIsDropped(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(2, sink, zerolog.Nop())
	d.Start(context.Background())
	d.Close()

	d.Record(domain.AuthEvent{Type: domain.EventLogout, Subject: "u1"})
	d.Close()

	if len(sink.events) != 0 {
		t.Fatalf("expected no events after close, got %d", len(sink.events))
	}
}

func TestDispatcher_SinkErrorsDoNotStopWorkers(t *testing.T) {
	sink := &recordingSink{err: errors.New("mongo unavailable")}
	d := NewDispatcher(1, sink, zerolog.Nop())
	d.Start(context.Background())

	d.Record(domain.AuthEvent{Type: domain.EventLogout, Subject: "u1"})
	d.Record(domain.AuthEvent{Type: domain.EventLogout, Subject: "u1"})
	d.Close()

	if len(sink.events) != 0 {
		t.Fatalf("expected failed writes to be skipped")
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, &recordingSink{}, zerolog.Nop())
	for _, key := range []string{"u1", "a@x.com", ""} {
		first := d.shardIndex(key)
		if first < 0 || first >= 8 {
			t.Fatalf("shard index out of range: %d", first)
		}
		if d.shardIndex(key) != first {
			t.Fatalf("shard index not deterministic for %q", key)
		}
	}
}
