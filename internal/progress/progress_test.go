package progress

import (
	"bytes"
	"sync"
	"testing"
)

func TestBarDisabledForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	b := New(Options{Max: 3, Description: "Pulling", Writer: &buf})
	if b.enabled {
		t.Fatal("bar should be disabled when writing to a buffer")
	}

	b.Add(1)
	b.Describe("Pulling pages")
	b.Add(2)
	b.Finish()

	if buf.Len() != 0 {
		t.Errorf("disabled bar wrote %q", buf.String())
	}
	if b.Done() != 3 {
		t.Errorf("Done() = %d, want 3", b.Done())
	}
}

func TestBarConcurrentAdd(t *testing.T) {
	b := New(Options{Max: 50, Quiet: true})
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Add(1)
		}()
	}
	wg.Wait()
	if b.Done() != 50 {
		t.Errorf("Done() = %d, want 50", b.Done())
	}
}
