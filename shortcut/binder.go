package shortcut

import (
	"fmt"
	"log/slog"
	"time"
)

// settleDelay gives the host a moment between unregister and register
// steps; immediate re-registration of a combination the host just
// released is sometimes rejected.
const settleDelay = 50 * time.Millisecond

// Host registers and removes global key bindings.
type Host interface {
	// Bind registers fn to run when s is pressed.
	Bind(s Shortcut, fn func()) error

	// Unbind removes a binding. Unbinding a shortcut that is not
	// registered is an error.
	Unbind(s Shortcut) error

	// IsBound reports whether s is currently registered.
	IsBound(s Shortcut) bool
}

// Binder layers the rebind transaction on top of a Host: swapping the
// active trigger passes through a brief window with no binding at all,
// never one with two conflicting bindings.
type Binder struct {
	host Host
}

// NewBinder creates a Binder over the given host.
func NewBinder(host Host) *Binder {
	return &Binder{host: host}
}

// Bind registers s with fn as its handler.
func (b *Binder) Bind(s Shortcut, fn func()) error {
	if err := b.host.Bind(s, fn); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	return nil
}

// Unbind removes a binding.
func (b *Binder) Unbind(s Shortcut) error {
	return b.host.Unbind(s)
}

// IsBound reports whether s is currently registered.
func (b *Binder) IsBound(s Shortcut) bool {
	return b.host.IsBound(s)
}

// Rebind replaces old with s. The old binding is removed first,
// ignoring "not registered" errors; if s itself is already registered
// it is unregistered before the fresh registration. Each unregister is
// followed by a short settle delay for the host to release the
// combination.
func (b *Binder) Rebind(old *Shortcut, s Shortcut, fn func()) error {
	if old != nil {
		if err := b.host.Unbind(*old); err != nil {
			slog.Warn("unbind previous shortcut", "shortcut", old.String(), "error", err)
		}
		time.Sleep(settleDelay)
	}

	if b.host.IsBound(s) {
		if err := b.host.Unbind(s); err != nil {
			slog.Warn("unbind conflicting shortcut", "shortcut", s.String(), "error", err)
		}
		time.Sleep(settleDelay)
	}

	if err := b.host.Bind(s, fn); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
	return nil
}
