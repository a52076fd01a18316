package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "pivot.csv")
	if err := SafeWriteFile(path, []byte("a,b\n")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "a,b\n" {
		t.Fatalf("read back = %q, %v", b, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{\n  \"a\": 1\n}" {
		t.Fatalf("json = %q", b)
	}
}
