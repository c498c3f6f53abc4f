package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicy_SucceedsOnFirstTry(t *testing.T) {
	calls := 0
	p := Policy{Attempts: 3, Base: time.Millisecond}
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPolicy_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	p := Policy{Attempts: 5, Base: time.Millisecond}
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPolicy_StopsOnNonRetriableError(t *testing.T) {
	calls := 0
	errNonRetriable := errors.New("non-retriable")
	p := Policy{Attempts: 5, Base: time.Millisecond}
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errNonRetriable
	}, func(error) bool { return false })
	if !errors.Is(err, errNonRetriable) {
		t.Fatalf("error = %v, want %v", err, errNonRetriable)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	errAlwaysFails := errors.New("always fails")
	p := Policy{Attempts: 3, Base: time.Millisecond}
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errAlwaysFails
	}, nil)
	if !errors.Is(err, errAlwaysFails) {
		t.Fatalf("error = %v, want %v", err, errAlwaysFails)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPolicy_StopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	p := Policy{Attempts: 3, Base: time.Millisecond}
	err := p.Do(ctx, func(context.Context) error {
		calls++
		return errors.New("transient")
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}
