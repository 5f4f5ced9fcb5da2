package shortcut

import (
	"fmt"
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
)

// GohookHost registers global hotkeys through a process-wide keyboard
// hook. gohook cannot remove a single registration, so every mutation
// tears the hook down and re-registers the surviving bindings.
type GohookHost struct {
	mu       sync.Mutex
	bindings map[Shortcut]func()
	running  bool
}

// NewGohookHost creates an idle host; the hook starts with the first
// binding.
func NewGohookHost() *GohookHost {
	return &GohookHost{bindings: make(map[Shortcut]func())}
}

// Bind registers fn for s and (re)starts the hook.
func (h *GohookHost) Bind(s Shortcut, fn func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.bindings[s]; ok {
		return fmt.Errorf("shortcut %s already bound", s)
	}
	h.bindings[s] = fn
	h.restart()
	return nil
}

// Unbind removes the binding for s and rebuilds the hook without it.
func (h *GohookHost) Unbind(s Shortcut) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.bindings[s]; !ok {
		return fmt.Errorf("shortcut %s not bound", s)
	}
	delete(h.bindings, s)
	h.restart()
	return nil
}

// IsBound reports whether s is registered on this host. The hook layer
// offers no system-wide query, so this answers for bindings owned by
// this process.
func (h *GohookHost) IsBound(s Shortcut) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.bindings[s]
	return ok
}

// Close tears the hook down and forgets all bindings.
func (h *GohookHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.bindings)
	if h.running {
		hook.End()
		h.running = false
	}
}

// restart rebuilds the hook registrations. Caller holds mu.
func (h *GohookHost) restart() {
	if h.running {
		hook.End()
		h.running = false
	}
	if len(h.bindings) == 0 {
		return
	}

	for s, fn := range h.bindings {
		hook.Register(hook.KeyDown, s.hookTokens(), func(e hook.Event) {
			// Handlers may sleep; keep the dispatch loop responsive.
			go fn()
		})
	}

	events := hook.Start()
	go func() {
		<-hook.Process(events)
		slog.Debug("keyboard hook stopped")
	}()
	h.running = true
}
