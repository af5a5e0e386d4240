package archive

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-data/meridian/internal/ledger"
)

type stubSource struct {
	events []ledger.Event
}

func (s *stubSource) EventsSince(seq uint64, limit int) []ledger.Event {
	var out []ledger.Event
	for _, ev := range s.events {
		if ev.Seq > seq {
			out = append(out, ev)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

type stubWriter struct {
	written []ledger.Event
	failOn  uint64
}

func (w *stubWriter) WriteEvents(_ context.Context, events []ledger.Event) error {
	for _, ev := range events {
		if w.failOn != 0 && ev.Seq == w.failOn {
			return errors.New("write refused")
		}
	}
	w.written = append(w.written, events...)
	return nil
}

func testEvents(n int) []ledger.Event {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	events := make([]ledger.Event, 0, n)
	for i := 1; i <= n; i++ {
		events = append(events, ledger.Event{
			Seq:  uint64(i),
			Type: ledger.EventTokensMinted,
			At:   at.Add(time.Duration(i) * time.Second),
		})
	}
	return events
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestCheckpoint(t *testing.T) *RedisCheckpoint {
	t.Helper()
	return NewRedisCheckpoint(newTestRedis(t), "run-a")
}

func TestRedisCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	cp := newTestCheckpoint(t)

	seq, err := cp.Last(ctx)
	if err != nil {
		t.Fatalf("empty checkpoint: %v", err)
	}
	if seq != 0 {
		t.Fatalf("empty checkpoint seq = %d, want 0", seq)
	}
	if err := cp.Set(ctx, 42); err != nil {
		t.Fatalf("set: %v", err)
	}
	seq, err = cp.Last(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if seq != 42 {
		t.Fatalf("seq = %d, want 42", seq)
	}
}

func TestCheckpointIsScopedPerRun(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	first := NewRedisCheckpoint(client, "run-a")
	second := NewRedisCheckpoint(client, "run-b")

	if err := first.Set(ctx, 99); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A fresh run starts from zero even with the old checkpoint present.
	seq, err := second.Last(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if seq != 0 {
		t.Fatalf("new run checkpoint = %d, want 0", seq)
	}
	seq, err = first.Last(ctx)
	if err != nil || seq != 99 {
		t.Fatalf("old run checkpoint = %d err=%v, want 99", seq, err)
	}
}

func TestArchiverDrainsInBatches(t *testing.T) {
	ctx := context.Background()
	source := &stubSource{events: testEvents(7)}
	writer := &stubWriter{}
	cp := newTestCheckpoint(t)

	a := NewArchiver(source, writer, cp, slog.Default(), time.Second, 3)
	n, err := a.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if n != 7 {
		t.Fatalf("archived %d events, want 7", n)
	}
	if len(writer.written) != 7 {
		t.Fatalf("writer holds %d events, want 7", len(writer.written))
	}
	seq, err := cp.Last(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if seq != 7 {
		t.Fatalf("checkpoint = %d, want 7", seq)
	}

	// A second pass with nothing new is a no-op.
	n, err = a.RunOnce(ctx)
	if err != nil || n != 0 {
		t.Fatalf("idle pass: n=%d err=%v", n, err)
	}
}

func TestArchiverRetriesFromCheckpointAfterFailure(t *testing.T) {
	ctx := context.Background()
	source := &stubSource{events: testEvents(6)}
	writer := &stubWriter{failOn: 5}
	cp := newTestCheckpoint(t)

	a := NewArchiver(source, writer, cp, slog.Default(), time.Second, 2)
	n, err := a.RunOnce(ctx)
	if err == nil {
		t.Fatal("expected write failure")
	}
	if n != 4 {
		t.Fatalf("archived %d before failure, want 4", n)
	}
	seq, _ := cp.Last(ctx)
	if seq != 4 {
		t.Fatalf("checkpoint = %d, want 4", seq)
	}

	// Clear the fault and the next pass picks up at seq 5.
	writer.failOn = 0
	n, err = a.RunOnce(ctx)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n != 2 {
		t.Fatalf("retry archived %d, want 2", n)
	}
	if len(writer.written) != 6 {
		t.Fatalf("writer holds %d events, want 6", len(writer.written))
	}
}
