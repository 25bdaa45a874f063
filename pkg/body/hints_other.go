//go:build !linux

package body

import "errors"

func applyHints(h Hints) error {
	if h == NoHints || (h.Core < 0 && h.Priority == 0) {
		return nil
	}
	return errors.New("scheduling hints are only supported on linux")
}
