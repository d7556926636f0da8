// Package testutil holds small test helpers shared across buf/pf/sp/am/
// recfile package tests. Adapted from common/testutil/tempdir.go.
package testutil

import (
	"os"
	"testing"

	"github.com/google/uuid"
)

// TempDir creates a temporary directory for a test, removed on cleanup.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "toypager-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// ScratchName returns a unique file name, avoiding collisions when a test
// creates several paged files in the same directory.
func ScratchName(ext string) string {
	return uuid.NewString() + ext
}
