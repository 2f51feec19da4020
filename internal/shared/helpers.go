// Package shared provides small helpers used across xpkg packages.
package shared

import (
	"fmt"
	"strings"
)

// CommandError wraps a command execution error with its trimmed output
// for cleaner error messages.
func CommandError(output []byte, err error) error {
	return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
}
