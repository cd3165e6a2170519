// Package common holds the shared plumbing every native market engine uses.
package common

import coreerrors "fanmarket/core/errors"

// ErrModulePaused is returned when an operation targets a paused module. It is
// a state-kind error so the gateway maps it like any other precondition
// failure.
var ErrModulePaused = coreerrors.Statef("module paused")

// PauseView reports whether a named module is administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the module is paused. A nil view means
// pausing is not wired and every module is live.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is a static in-memory PauseView keyed by module name.
type Pauses map[string]bool

// IsPaused implements the PauseView interface.
func (p Pauses) IsPaused(module string) bool {
	if len(p) == 0 {
		return false
	}
	return p[module]
}
