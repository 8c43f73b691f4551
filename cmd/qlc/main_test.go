package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadSnippet(t *testing.T) {
	ws := t.TempDir()
	path := filepath.Join(ws, "a.py")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name               string
		start, end         int
		want               string
		wantStart, wantEnd int
	}{
		{"middle range", 2, 3, "two\nthree", 2, 3},
		{"whole file by default", 1, 0, "one\ntwo\nthree\nfour", 1, 4},
		{"end clamped to file", 3, 99, "three\nfour", 3, 4},
		{"start clamped to one", 0, 1, "one", 1, 1},
		{"inverted range collapses", 3, 2, "three", 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, start, end, err := readSnippet(ws, "a.py", tt.start, tt.end)
			if err != nil {
				t.Fatalf("readSnippet: %v", err)
			}
			if got != tt.want {
				t.Errorf("snippet = %q, want %q", got, tt.want)
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("range = %d-%d, want %d-%d", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestReadSnippetErrors(t *testing.T) {
	ws := t.TempDir()
	if _, _, _, err := readSnippet(ws, "missing.py", 1, 0); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(ws, "empty.py")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := readSnippet(ws, "empty.py", 1, 0); err == nil {
		t.Error("expected error for empty file")
	}

	full := filepath.Join(ws, "b.py")
	if err := os.WriteFile(full, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := readSnippet(ws, "b.py", 5, 0); err == nil {
		t.Error("expected error for start past end of file")
	}
}
