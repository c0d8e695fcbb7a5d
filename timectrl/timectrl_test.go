package timectrl

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTickControllerRunsEveryTickInOrder(t *testing.T) {
	tc := NewTickController(0, Accelerated)

	var stepped, heard []int
	tc.AddListener(func(tick int) { heard = append(heard, tick) })

	if got := tc.Now(); got != -1 {
		t.Fatalf("Now() before run = %d, want -1", got)
	}

	err := tc.Run(context.Background(), 4, func(tick int) error {
		stepped = append(stepped, tick)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i := 0; i < 4; i++ {
		if stepped[i] != i || heard[i] != i {
			t.Fatalf("tick %d: stepped=%v heard=%v", i, stepped, heard)
		}
	}
	if got := tc.Now(); got != 3 {
		t.Fatalf("Now() = %d, want 3", got)
	}
	if got := tc.Total(); got != 4 {
		t.Fatalf("Total() = %d, want 4", got)
	}
}

func TestTickControllerStopsOnStepError(t *testing.T) {
	tc := NewTickController(0, Accelerated)
	boom := errors.New("boom")

	err := tc.Run(context.Background(), 10, func(tick int) error {
		if tick == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if got := tc.Now(); got != 1 {
		t.Fatalf("Now() = %d, want 1", got)
	}
}

func TestTickControllerRealTimePacing(t *testing.T) {
	tc := NewTickController(5*time.Millisecond, RealTime)

	start := time.Now()
	if err := tc.Run(context.Background(), 3, func(int) error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("3 realtime ticks took %v, want >= 15ms", elapsed)
	}
}

func TestTickControllerRealTimeCancel(t *testing.T) {
	tc := NewTickController(time.Hour, RealTime)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tc.Run(ctx, 3, func(int) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

func TestTickControllerAcceleratedCancel(t *testing.T) {
	tc := NewTickController(0, Accelerated)
	ctx, cancel := context.WithCancel(context.Background())

	stepped := 0
	err := tc.Run(ctx, 1000, func(tick int) error {
		stepped++
		if tick == 2 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if stepped != 3 {
		t.Fatalf("stepped %d ticks after cancel at tick 2, want 3", stepped)
	}
	if got := tc.Now(); got != 2 {
		t.Fatalf("Now() = %d, want 2", got)
	}
}
