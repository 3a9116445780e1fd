package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingPurger struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (p *countingPurger) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, days)
	return 3, p.err
}

func (p *countingPurger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestStartRetentionScheduler(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"purges on start and every interval", nil},
		{"keeps running after a failed purge", errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &countingPurger{err: tt.err}
			ctx, cancel := context.WithCancel(context.Background())

			done := make(chan struct{})
			go func() {
				StartRetentionScheduler(ctx, p, RetentionConfig{RetentionDays: 7, CheckInterval: 10 * time.Millisecond}, discardLogger())
				close(done)
			}()

			deadline := time.Now().Add(2 * time.Second)
			for p.count() < 3 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			cancel()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("scheduler did not stop after cancel")
			}

			if got := p.count(); got < 3 {
				t.Fatalf("PurgeOlderThan called %d times, want at least 3", got)
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			for _, days := range p.calls {
				if days != 7 {
					t.Errorf("PurgeOlderThan(days=%d), want 7", days)
				}
			}
		})
	}
}

func TestRetentionConfig_Defaults(t *testing.T) {
	got := RetentionConfig{}.withDefaults()
	if got.RetentionDays != 30 || got.CheckInterval != 24*time.Hour {
		t.Errorf("withDefaults() = %+v, want 30 days every 24h", got)
	}
}
