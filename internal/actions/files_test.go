package actions

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFiles_SearchFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs", "Budget-2026.xlsx"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, ".cache", "budget-temp.bin"))

	f := NewFiles(root)

	path, err := f.SearchFile(context.Background(), "budget")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "Budget-2026.xlsx") {
		t.Errorf("got %q, want the xlsx match; dot directories must be skipped", path)
	}

	path, err = f.SearchFile(context.Background(), "payroll")
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("no-match query returned %q", path)
	}

	if path, _ := f.SearchFile(context.Background(), "   "); path != "" {
		t.Errorf("blank query returned %q", path)
	}
}

func TestFiles_SearchFileCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "report.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFiles(root)
	if _, err := f.SearchFile(ctx, "report"); err == nil {
		t.Error("cancelled search should surface the context error")
	}
}
