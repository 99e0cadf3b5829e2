package graph

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// spyInvalidator records invalidation calls for assertions.
type spyInvalidator struct {
	mu    sync.Mutex
	pages []string
	all   int
}

func (s *spyInvalidator) InvalidatePage(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, id)
}

func (s *spyInvalidator) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all++
}

func (s *spyInvalidator) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pages...), s.all
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWatch_WriteInvalidatesPage(t *testing.T) {
	local, root := testGraph(t)
	spy := &spyInvalidator{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, local, spy, slog.Default())
	}()

	// Give the watcher a moment to register directories.
	time.Sleep(100 * time.Millisecond)

	writeGraphFile(t, root, "pages/Alpha.md", "- updated content\n")

	waitFor(t, func() bool {
		pages, _ := spy.snapshot()
		for _, p := range pages {
			if p == "Alpha" {
				return true
			}
		}
		return false
	})

	cancel()
	<-done
}

func TestWatch_NewPageInvalidates(t *testing.T) {
	local, root := testGraph(t)
	spy := &spyInvalidator{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, local, spy, slog.Default())
	}()

	time.Sleep(100 * time.Millisecond)
	writeGraphFile(t, root, "pages/Gamma.md", "- brand new\n")

	waitFor(t, func() bool {
		pages, _ := spy.snapshot()
		for _, p := range pages {
			if p == "Gamma" {
				return true
			}
		}
		return false
	})

	cancel()
	<-done
}

func TestWatch_NonPageFilesIgnored(t *testing.T) {
	local, root := testGraph(t)
	spy := &spyInvalidator{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, local, spy, slog.Default())
	}()

	time.Sleep(100 * time.Millisecond)
	writeGraphFile(t, root, "pages/notes.txt", "not markdown")

	// Nothing should arrive; give it a beat and check.
	time.Sleep(300 * time.Millisecond)
	pages, all := spy.snapshot()
	if len(pages) != 0 || all != 0 {
		t.Errorf("unexpected invalidations: pages=%v all=%d", pages, all)
	}

	cancel()
	<-done
}
