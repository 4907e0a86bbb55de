package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arcadian-io/seqprep/internal/model"
)

type mockOutput struct {
	mu      sync.Mutex
	records []model.ResultRecord
	closed  bool
	err     error         // if set, Write returns this
	delay   time.Duration // if >0, Write sleeps first
}

func (m *mockOutput) Write(_ context.Context, rec model.ResultRecord) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return m.err
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func testRecord(id string) model.ResultRecord {
	return model.ResultRecord{ID: id, Lengths: []int{1}, Offsets: []int{0, 1}, Dim: 2}
}

func TestRecordsFlowThrough(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	for i := 0; i < 10; i++ {
		if err := a.Write(context.Background(), testRecord("rec")); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if inner.recordCount() != 10 {
		t.Errorf("got %d records, want 10", inner.recordCount())
	}
	if !inner.closed {
		t.Error("inner output not closed")
	}
}

func TestBackpressureBlocks(t *testing.T) {
	// Inner output is slow; buffer size is 1.
	inner := &mockOutput{delay: 50 * time.Millisecond}
	a := New(inner, WithBufferSize(1))

	// First write fills the buffer.
	a.Write(context.Background(), testRecord("first"))

	// Second write should block until the drain goroutine consumes the first.
	done := make(chan struct{})
	go func() {
		a.Write(context.Background(), testRecord("second"))
		close(done)
	}()

	select {
	case <-done:
		// Unblocked eventually.
	case <-time.After(2 * time.Second):
		t.Fatal("Write blocked indefinitely (expected eventual unblock via drain)")
	}

	a.Close()
}

func TestDropOnFull(t *testing.T) {
	// Slow inner output + tiny buffer + drop mode: most writes are dropped
	// but none block.
	inner := &mockOutput{delay: 100 * time.Millisecond}
	a := New(inner, WithBufferSize(1), WithDropOnFull())

	start := time.Now()
	for i := 0; i < 20; i++ {
		if err := a.Write(context.Background(), testRecord("rec")); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("writes took %v, expected near-instant in drop mode", elapsed)
	}

	a.Close()
	if inner.recordCount() >= 20 {
		t.Errorf("expected drops, got all %d records", inner.recordCount())
	}
}

func TestWriteErrorsGoToCallback(t *testing.T) {
	var errCount atomic.Int32
	inner := &mockOutput{err: errors.New("sink down")}
	a := New(inner,
		WithBufferSize(4),
		WithOnError(func(error) { errCount.Add(1) }),
	)

	for i := 0; i < 3; i++ {
		a.Write(context.Background(), testRecord("rec"))
	}
	a.Close()

	if errCount.Load() != 3 {
		t.Errorf("error callback fired %d times, want 3", errCount.Load())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner)

	if err := a.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}
