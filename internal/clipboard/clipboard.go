// Package clipboard copies plain text to the system clipboard.
package clipboard

import (
	"fmt"

	sysclip "github.com/atotto/clipboard"
)

// writeAll is swapped out in tests.
var writeAll = sysclip.WriteAll

// unsupported reports whether no clipboard tool was found at startup.
var unsupported = func() bool { return sysclip.Unsupported }

// CopyText puts text on the system clipboard.
func CopyText(text string) error {
	if unsupported() {
		return fmt.Errorf("no suitable clipboard tool found (tried: wl-copy, xclip, xsel)")
	}
	if err := writeAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}
