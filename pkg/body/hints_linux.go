//go:build linux

package body

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// applyHints must run on the locked worker thread.
func applyHints(h Hints) error {
	var errs []error

	if h.Core >= 0 {
		var set unix.CPUSet
		set.Zero()
		set.Set(h.Core)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			errs = append(errs, fmt.Errorf("affinity core %d: %w", h.Core, err))
		}
	}

	if h.Priority != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), h.Priority); err != nil {
			errs = append(errs, fmt.Errorf("nice %d: %w", h.Priority, err))
		}
	}

	return errors.Join(errs...)
}
