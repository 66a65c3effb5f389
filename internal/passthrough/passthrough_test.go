package passthrough

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeLoader resolves fetch functions from a path -> symbol -> service
// table and records which handles were closed.
type fakeLoader struct {
	mu       sync.Mutex
	services map[string]map[string]interface{}
	opened   []string
	closed   []string
}

type fakeHandle struct{ path string }

func (l *fakeLoader) Open(path string) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, path)
	return &fakeHandle{path: path}, nil
}

func (l *fakeLoader) Resolve(h Handle, symbol string) (FetchFn, error) {
	path := h.(*fakeHandle).path
	symbols, ok := l.services[path]
	if !ok {
		return nil, errors.New("no such library")
	}
	service, ok := symbols[symbol]
	if !ok {
		return nil, errors.New("undefined symbol " + symbol)
	}
	return func(string) interface{} { return service }, nil
}

func (l *fakeLoader) Close(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = append(l.closed, h.(*fakeHandle).path)
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

func TestGetProbesDirsInOrder(t *testing.T) {
	odm := t.TempDir()
	system := t.TempDir()
	odmLib := filepath.Join(odm, "android.hardware.foo@1.0-impl.so")
	sysLib := filepath.Join(system, "android.hardware.foo@1.0-impl.so")
	touch(t, odmLib)
	touch(t, sysLib)
	// A name that matches the prefix but not the suffix.
	touch(t, filepath.Join(odm, "android.hardware.foo@1.0-impl.txt"))

	odmService := &struct{ name string }{"odm"}
	loader := &fakeLoader{services: map[string]map[string]interface{}{
		odmLib: {"HIDL_FETCH_IFoo": odmService},
		sysLib: {"HIDL_FETCH_IFoo": &struct{ name string }{"system"}},
	}}
	sm := NewServiceManager(nil)
	m := NewManager([]string{odm, system}, loader, sm, nil)

	got, err := m.Get("android.hardware.foo@1.0::IFoo", "default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != odmService {
		t.Fatalf("got the wrong implementation; ODM must shadow system")
	}
	if clients := sm.PassthroughClients("android.hardware.foo@1.0::IFoo"); len(clients) != 1 || clients[0] != "default" {
		t.Fatalf("clients = %v, want [default]", clients)
	}
}

func TestGetClosesHandlesOnFailedProbes(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "android.hardware.foo@1.0-impl-broken.so")
	good := filepath.Join(dir, "android.hardware.foo@1.0-impl.so")
	touch(t, broken)
	touch(t, good)

	loader := &fakeLoader{services: map[string]map[string]interface{}{
		broken: {}, // opens, but has no fetch symbol
		good:   {"HIDL_FETCH_IFoo": &struct{}{}},
	}}
	m := NewManager([]string{dir}, loader, NewServiceManager(nil), nil)

	if _, err := m.Get("android.hardware.foo@1.0::IFoo", "default"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, closed := range loader.closed {
		if closed == good {
			t.Fatalf("the winning library's handle must stay open")
		}
	}
	found := false
	for _, closed := range loader.closed {
		if closed == broken {
			found = true
		}
	}
	if !found {
		t.Fatalf("failed probe did not close its handle; closed = %v", loader.closed)
	}
}

func TestGetReportsMissingImplementation(t *testing.T) {
	m := NewManager([]string{t.TempDir()}, &fakeLoader{}, NewServiceManager(nil), nil)
	_, err := m.Get("android.hardware.foo@1.0::IFoo", "default")
	if err == nil {
		t.Fatalf("expected an error for an empty search path")
	}
	if _, err := m.Get("android.hardware.foo@1.0", "default"); err == nil {
		t.Fatalf("a package-only name must be rejected")
	}
}

func TestWaiterReturnsImmediatelyAfterNotification(t *testing.T) {
	w := NewWaiter("android.hardware.foo@1.0::IFoo", "default", nil)
	w.OnRegistration()
	w.OnRegistration() // idempotent

	done := make(chan struct{})
	go func() {
		w.Wait()
		w.Wait() // later waits also return at once
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not return after the notification fired")
	}
}

func TestWaiterBlocksUntilNotified(t *testing.T) {
	w := NewWaiter("android.hardware.foo@1.0::IFoo", "default", nil)
	released := make(chan struct{})
	go func() {
		w.Wait()
		close(released)
	}()
	select {
	case <-released:
		t.Fatalf("Wait returned before any notification")
	case <-time.After(50 * time.Millisecond):
	}
	w.OnRegistration()
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not wake up on notification")
	}
}

func TestRegisterPassthroughClientCollapsesDuplicates(t *testing.T) {
	sm := NewServiceManager(nil)
	sm.RegisterPassthroughClient("a@1.0::IA", "default")
	sm.RegisterPassthroughClient("a@1.0::IA", "default")
	sm.RegisterPassthroughClient("a@1.0::IA", "slot2")
	if got := sm.PassthroughClients("a@1.0::IA"); len(got) != 2 {
		t.Fatalf("clients = %v, want two distinct instances", got)
	}
}
