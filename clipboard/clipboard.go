// Package clipboard reads and writes the system clipboard.
package clipboard

import (
	"github.com/atotto/clipboard"
)

// SetText replaces the clipboard contents with text.
func SetText(text string) error {
	return clipboard.WriteAll(text)
}

// GetText returns the current clipboard contents.
func GetText() (string, error) {
	return clipboard.ReadAll()
}
