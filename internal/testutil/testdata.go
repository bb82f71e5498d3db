package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// LoadJSON loads a JSON fixture from testdata relative to the repo root.
func LoadJSON(t *testing.T, rel string, v any) {
	t.Helper()
	data := readTestdata(t, rel)
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", rel, err)
	}
}

// LoadBytes returns the raw content of a testdata file.
func LoadBytes(t *testing.T, rel string) []byte {
	t.Helper()
	return readTestdata(t, rel)
}

// Open opens a testdata file; it is closed when the test ends unless the
// caller closes it first.
func Open(t *testing.T, rel string) *os.File {
	t.Helper()
	f, err := os.Open(locate(t, rel))
	if err != nil {
		t.Fatalf("open %s: %v", rel, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func readTestdata(t *testing.T, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(locate(t, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return data
}

func locate(t *testing.T, rel string) string {
	t.Helper()
	candidates := []string{
		filepath.Join("testdata", rel),
		filepath.Join("..", "testdata", rel),
		filepath.Join("..", "..", "testdata", rel),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Fatalf("unable to locate testdata file %s", rel)
	return ""
}
