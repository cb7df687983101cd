package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_WatchUnwatch(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "agentdeck.toml")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(tmpDir, "later.toml")

	w := newWatcher(t)
	if err := w.Watch(existing); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := w.Watch(missing); err != nil {
		t.Fatalf("Watch() of not yet created file error = %v", err)
	}
	if err := w.Watch(existing); err != nil {
		t.Fatalf("Watch() twice error = %v", err)
	}

	files := w.WatchedFiles()
	if len(files) != 2 || files[0] != existing || files[1] != missing {
		t.Errorf("WatchedFiles() = %v", files)
	}

	if err := w.Unwatch(existing); err != nil {
		t.Fatalf("Unwatch() error = %v", err)
	}
	if err := w.Unwatch(missing); err != nil {
		t.Fatalf("Unwatch() error = %v", err)
	}
	if files := w.WatchedFiles(); len(files) != 0 {
		t.Errorf("WatchedFiles() after Unwatch = %v", files)
	}
}

func TestWatcher_WatchMissingDir(t *testing.T) {
	w := newWatcher(t)
	if err := w.Watch(filepath.Join(t.TempDir(), "nope", "agentdeck.toml")); err == nil {
		t.Error("Watch() in missing directory should fail")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w := newWatcher(t)
	if w.IsRunning() {
		t.Error("watcher should not be running before Start")
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if !w.IsRunning() {
		t.Error("watcher should be running after Start")
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if w.IsRunning() {
		t.Error("watcher should not be running after Stop")
	}
	if err := w.Start(); err != ErrClosed {
		t.Errorf("Start() after Stop error = %v, want ErrClosed", err)
	}
	if err := w.Watch("x.toml"); err != ErrClosed {
		t.Errorf("Watch() after Stop error = %v, want ErrClosed", err)
	}
}

func TestWatcher_DetectsFileModification(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test.toml")
	if err := os.WriteFile(tmpFile, []byte("initial"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t, WithDebounce(0))

	var mu sync.Mutex
	var received []Event
	w.OnChange(func(event Event) {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
	})

	if err := w.Watch(tmpFile); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(tmpFile, []byte("modified"), 0644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	})
	if !ok {
		t.Fatal("did not receive file change event")
	}

	mu.Lock()
	defer mu.Unlock()
	if received[0].Path != tmpFile {
		t.Errorf("event.Path = %q, want %q", received[0].Path, tmpFile)
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "watched.toml")
	other := filepath.Join(tmpDir, "other.toml")

	w := newWatcher(t, WithDebounce(0))

	var otherEvents, watchedEvents atomic.Int32
	w.OnChange(func(event Event) {
		if event.Path == tmpFile {
			watchedEvents.Add(1)
		} else {
			otherEvents.Add(1)
		}
	})

	if err := w.Watch(tmpFile); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(other, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tmpFile, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(func() bool { return watchedEvents.Load() > 0 }) {
		t.Fatal("did not receive event for watched file")
	}
	if n := otherEvents.Load(); n != 0 {
		t.Errorf("received %d events for unwatched sibling", n)
	}
}

func TestWatcher_AtomicReplace(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "agentdeck.toml")
	if err := os.WriteFile(tmpFile, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t, WithDebounce(50*time.Millisecond))

	var mu sync.Mutex
	var ops []Operation
	w.OnChange(func(event Event) {
		mu.Lock()
		ops = append(ops, event.Op)
		mu.Unlock()
	})
	if err := w.Watch(tmpFile); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	tmp := filepath.Join(tmpDir, ".agentdeck.toml.tmp")
	if err := os.WriteFile(tmp, []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, tmpFile); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ops) > 0
	})
	if !ok {
		t.Fatal("did not receive event for replaced file")
	}
	mu.Lock()
	defer mu.Unlock()
	if ops[0] != OpCreate {
		t.Errorf("Op = %v, want create", ops[0])
	}
}

func TestWatcher_Debounce(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "debounce.toml")
	if err := os.WriteFile(tmpFile, []byte("initial"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newWatcher(t, WithDebounce(100*time.Millisecond))

	var eventCount atomic.Int32
	w.OnChange(func(event Event) {
		eventCount.Add(1)
	})

	if err := w.Watch(tmpFile); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(tmpFile, []byte("modified"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !waitFor(func() bool { return eventCount.Load() > 0 }) {
		t.Fatal("did not receive debounced event")
	}
	time.Sleep(200 * time.Millisecond)

	if count := eventCount.Load(); count > 2 {
		t.Errorf("received %d events, expected 1-2 (debounced)", count)
	}
}

func TestWatcher_QueueEventCoalescing(t *testing.T) {
	tests := []struct {
		name  string
		first Operation
		next  Operation
		want  Operation
	}{
		{"write after write", OpWrite, OpWrite, OpWrite},
		{"write after create", OpCreate, OpWrite, OpCreate},
		{"write after remove", OpRemove, OpWrite, OpRemove},
		{"remove after write", OpWrite, OpRemove, OpRemove},
		{"create after remove", OpRemove, OpCreate, OpCreate},
		{"rename after create", OpCreate, OpRename, OpRename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWatcher(t)
			now := time.Now()
			w.queueEvent(Event{Path: "/x", Op: tt.first, Time: now})
			w.queueEvent(Event{Path: "/x", Op: tt.next, Time: now.Add(time.Millisecond)})
			if got := w.pendingFiles["/x"].Op; got != tt.want {
				t.Errorf("coalesced Op = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatcher_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	w := newWatcher(t, WithDebounce(0))

	var called atomic.Int32
	w.OnChange(func(Event) { panic("boom") })
	w.OnChange(func(Event) { called.Add(1) })

	w.emitEvent(Event{Path: "/x", Op: OpWrite})
	if called.Load() != 1 {
		t.Error("second handler not called after first panicked")
	}
}
