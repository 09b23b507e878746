package registry

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewDeduplicatesInFirstSeenOrder(t *testing.T) {
	r := New([]string{"a", "b", "a", "c"}, false)

	hosts := r.Hosts()
	if len(hosts) != 3 {
		t.Fatalf("expected 3 hosts, got %d", len(hosts))
	}
	want := []string{"a", "b", "c"}
	for i, h := range hosts {
		if h.Index != i {
			t.Errorf("host %q: expected index %d, got %d", h.Address, i, h.Index)
		}
		if h.Address != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], h.Address)
		}
	}
}

func TestNewKeepDuplicates(t *testing.T) {
	r := New([]string{"a", "b", "a"}, true)
	if r.Len() != 3 {
		t.Fatalf("expected 3 hosts with duplicates kept, got %d", r.Len())
	}
	hosts := r.Hosts()
	if hosts[2].Address != "a" || hosts[2].Index != 2 {
		t.Errorf("unexpected third host %+v", hosts[2])
	}
}

func TestNewSkipsBlankAndTrims(t *testing.T) {
	r := New([]string{" a ", "", "   ", "a"}, false)
	if r.Len() != 1 {
		t.Fatalf("expected 1 host, got %d", r.Len())
	}
	if r.Hosts()[0].Address != "a" {
		t.Errorf("expected trimmed address, got %q", r.Hosts()[0].Address)
	}
}

func TestEmptyRegistry(t *testing.T) {
	r := New(nil, false)
	if r.Len() != 0 || len(r.Hosts()) != 0 {
		t.Fatalf("expected empty registry, got %d hosts", r.Len())
	}
	if r.FoundCount() != 0 {
		t.Errorf("expected no found hosts")
	}
}

func TestMarkFoundIsIdempotent(t *testing.T) {
	r := New([]string{"h1", "h2"}, false)

	if r.IsFound(0) {
		t.Fatal("host should start unresolved")
	}
	if !r.MarkFound(0) {
		t.Error("first MarkFound should flip the flag")
	}
	if r.MarkFound(0) {
		t.Error("second MarkFound should be a no-op")
	}
	if !r.IsFound(0) {
		t.Error("host should remain found")
	}
	if r.IsFound(1) {
		t.Error("unrelated host must not be affected")
	}
	if !r.Status(0).Found() {
		t.Error("status handle should observe the flag")
	}
	if r.FoundCount() != 1 {
		t.Errorf("expected 1 found host, got %d", r.FoundCount())
	}
}

func TestConcurrentMarkFoundFlipsOnce(t *testing.T) {
	r := New([]string{"h1"}, false)

	var flips atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.MarkFound(0) {
				flips.Add(1)
			}
			_ = r.IsFound(0)
		}()
	}
	wg.Wait()

	if flips.Load() != 1 {
		t.Fatalf("expected exactly one flip, got %d", flips.Load())
	}
	if !r.IsFound(0) {
		t.Fatal("host should be found")
	}
}
