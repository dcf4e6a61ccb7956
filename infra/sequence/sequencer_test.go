package sequence

import (
	"sync"
	"testing"
)

func TestSequencerMonotonic(t *testing.T) {
	s := New(10)
	if got := s.Next(); got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
	if got := s.Current(); got != 11 {
		t.Fatalf("expected current 11, got %d", got)
	}
	s.Reset(100)
	if got := s.Next(); got != 101 {
		t.Fatalf("expected 101 after reset, got %d", got)
	}
}

func TestSequencerConcurrentUnique(t *testing.T) {
	s := New(0)
	const workers, per = 8, 1000

	var mu sync.Mutex
	seen := make(map[uint64]struct{}, workers*per)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, per)
			for i := 0; i < per; i++ {
				local = append(local, s.Next())
			}
			mu.Lock()
			for _, v := range local {
				seen[v] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers*per {
		t.Fatalf("expected %d unique sequences, got %d", workers*per, len(seen))
	}
	if s.Current() != workers*per {
		t.Fatalf("expected current %d, got %d", workers*per, s.Current())
	}
}
