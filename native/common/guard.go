package common

import "errors"

// ErrModulePaused is returned by Guard when an operator has paused the named
// module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports operator pause switches per module ("exchange", "swap",
// "autoswap", ...). A nil view means nothing is paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard is consulted at the top of every state-changing engine operation.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
