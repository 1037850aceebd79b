package source

import (
	"context"
	"testing"
	"time"
)

func TestPacer_NilNeverBlocks(t *testing.T) {
	var p *pacer
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("nil pacer should not block")
	}
}

func TestPacer_EnforcesInterval(t *testing.T) {
	p := newPacer(20 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// first call is free, the next two wait 20ms each
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("three calls took %v, want >= 40ms", elapsed)
	}
}

func TestPacer_ContextCancel(t *testing.T) {
	p := newPacer(time.Minute)
	if err := p.wait(context.Background()); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.wait(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestNewPacer_ZeroInterval(t *testing.T) {
	if p := newPacer(0); p != nil {
		t.Error("zero interval should yield nil pacer")
	}
}
