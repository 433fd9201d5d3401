// Package project locates the module root on disk.
package project

import (
	"os"
	"path/filepath"
)

// Root walks upward from start until it finds a directory containing go.mod.
func Root(start string) (string, bool) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
