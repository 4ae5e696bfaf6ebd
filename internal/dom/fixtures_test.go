package dom

import (
	"os"
	"path/filepath"
	"testing"
)

// loadFixture reads an HTML fixture from testdata/fixtures.
func loadFixture(t *testing.T, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", "fixtures", name+".html"))
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", name, err)
	}

	return string(data)
}
