package display

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// CopyToClipboard writes content to the system clipboard and prints the
// outcome. The label names what was copied.
func CopyToClipboard(content, label string) {
	if err := clipboard.WriteAll(content); err != nil {
		Error(fmt.Errorf("copy %s to clipboard: %w", label, err))
		return
	}
	Success(label + " copied to clipboard")
}
