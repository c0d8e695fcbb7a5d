package partition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRanges(t *testing.T) {
	tests := []struct {
		name           string
		links, workers int
		want           []Range
	}{
		{"single worker", 5, 1, []Range{{0, 5}}},
		{"even split", 6, 3, []Range{{0, 2}, {2, 4}, {4, 6}}},
		{"ceil split", 7, 3, []Range{{0, 3}, {3, 6}, {6, 7}}},
		{"more workers than links", 2, 4, []Range{{0, 1}, {1, 2}, {2, 2}, {2, 2}}},
		{"last worker empty", 4, 3, []Range{{0, 2}, {2, 4}, {4, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ranges(tt.links, tt.workers)
			if len(got) != len(tt.want) {
				t.Fatalf("Ranges(%d, %d) = %v, want %v", tt.links, tt.workers, got, tt.want)
			}
			covered := 0
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Ranges(%d, %d)[%d] = %v, want %v", tt.links, tt.workers, i, got[i], tt.want[i])
				}
				covered += got[i].Len()
			}
			if covered != tt.links {
				t.Fatalf("ranges cover %d links, want %d", covered, tt.links)
			}
		})
	}
}

func TestOwnerMatchesRanges(t *testing.T) {
	for workers := 1; workers <= 9; workers++ {
		ranges := Ranges(8, workers)
		size := ShardSize(8, workers)
		for link := 0; link < 8; link++ {
			w := Owner(link, size)
			if !ranges[w].Contains(link) {
				t.Fatalf("workers=%d: Owner(%d) = %d, range %v", workers, link, w, ranges[w])
			}
		}
	}
}

func TestBarrierReleasesAllParticipants(t *testing.T) {
	const n, rounds = 4, 50
	b := NewBarrier(n)

	var phase atomic.Int64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				phase.Add(1)
				if err := b.Wait(context.Background()); err != nil {
					errs <- err
					return
				}
				// Nobody may have started the next round before everyone
				// finished this one.
				if got := phase.Load(); got < int64((r+1)*n) {
					errs <- errors.New("barrier released early")
					return
				}
				if err := b.Wait(context.Background()); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestBarrierWaitHonoursContext(t *testing.T) {
	b := NewBarrier(2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want DeadlineExceeded", err)
	}
}
