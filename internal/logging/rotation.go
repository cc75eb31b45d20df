package logging

import (
	"fmt"
	"os"
)

// rollIfOversized moves path to path+".1" when it is larger than maxBytes,
// replacing any previous backup. A single backup is kept; the playground log
// is a debugging aid, not an audit trail.
func rollIfOversized(path string, maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() <= maxBytes {
		return nil
	}

	backup := path + ".1"
	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old log backup: %w", err)
	}
	if err := os.Rename(path, backup); err != nil {
		return fmt.Errorf("failed to roll log file: %w", err)
	}
	return nil
}
