package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/core"
	applog "saldo/internal/log"
	"saldo/internal/store/memory"
)

func bufferLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{
		Level:     slog.LevelDebug,
		Component: applog.ComponentWorker,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestAuditWorker_HandleLedgerEvent(t *testing.T) {
	ctx := context.Background()
	st := memory.New(core.Profile{ID: "home", Name: "Home"})
	err := st.InsertTransactions(ctx, "home",
		core.Transaction{ID: "in", Amount: core.Cents(100), Date: core.NewDate(2024, 1, 2), Type: core.Income, Account: core.Cash},
		core.Transaction{ID: "out", Amount: core.Cents(300), Date: core.NewDate(2024, 1, 1), Type: core.Expense, Account: core.Cash},
	)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := NewAuditWorker(st, bufferLogger(&buf))

	event := amqp.NewLedgerEvent("home", amqp.TransactionCreated, "out")
	if err := w.HandleLedgerEvent(ctx, &event); err != nil {
		t.Fatalf("violation must not be returned as an error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "negative balance") || !strings.Contains(out, "transaction_id=out") {
		t.Errorf("violation not logged: %s", out)
	}

	missing := amqp.NewLedgerEvent("nobody", amqp.TransactionCreated)
	if err := w.HandleLedgerEvent(ctx, &missing); err == nil {
		t.Error("expected error for unknown profile")
	}
}

type fakeConsumer struct {
	events []*amqp.LedgerEvent
	err    error
}

func (f *fakeConsumer) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for _, e := range f.events {
		if err := handler(ctx, e); err != nil {
			return err
		}
	}
	return f.err
}

func TestAuditWorker_Run(t *testing.T) {
	st := memory.New(core.Profile{ID: "home", Name: "Home"})
	var buf bytes.Buffer
	w := NewAuditWorker(st, bufferLogger(&buf))

	e := amqp.NewLedgerEvent("home", amqp.AccountDeleted)
	boom := errors.New("channel closed")
	if err := w.Run(context.Background(), &fakeConsumer{events: []*amqp.LedgerEvent{&e}, err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected consumer error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx, &fakeConsumer{err: context.Canceled}); err != nil {
		t.Fatalf("cancelled run should return nil, got %v", err)
	}
}

type countingProcessor struct {
	mu    sync.Mutex
	calls []core.Date
}

func (p *countingProcessor) ProcessDue(_ context.Context, today core.Date) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, today)
	return 0, nil
}

func (p *countingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestFixedExpenseLoop_Run(t *testing.T) {
	proc := &countingProcessor{}
	var buf bytes.Buffer
	loop := NewFixedExpenseLoop(proc, 5*time.Millisecond, bufferLogger(&buf))
	loop.now = func() time.Time { return time.Date(2024, 5, 17, 23, 30, 0, 0, time.UTC) }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if proc.count() < 2 {
		t.Fatalf("expected startup run plus ticks, got %d calls", proc.count())
	}
	if got := proc.calls[0]; !got.Equal(core.NewDate(2024, 5, 17)) {
		t.Errorf("processed day = %s, want 2024-05-17", got)
	}
}
