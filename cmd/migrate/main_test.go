package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aequinox/gesundes-leben/wp2md/internal/document"
)

func writePost(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAddIDs(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "2025-03-28-hallo-welt", "index.md")
	present := filepath.Join(dir, "2025-03-29-zweiter", "index.mdx")
	writePost(t, missing, "---\ntitle: \"Hallo Welt\"\ndraft: false\n---\n\nText\n")
	writePost(t, present, "---\nid: \"keep-me\"\ntitle: \"Zweiter\"\n---\n\nMehr\n")
	writePost(t, filepath.Join(dir, "notes.txt"), "not a post")

	added, err := addIDs(dir, func() string { return "new-id" })
	if err != nil {
		t.Fatalf("addIDs() error = %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}

	doc, body, err := document.Read(missing)
	if err != nil {
		t.Fatal(err)
	}
	if keys := doc.Keys(); len(keys) != 3 || keys[0] != "id" || doc.String("id") != "new-id" {
		t.Errorf("keys = %v, id = %q", keys, doc.String("id"))
	}
	if body != "Text" {
		t.Errorf("body = %q", body)
	}

	kept, _, err := document.Read(present)
	if err != nil {
		t.Fatal(err)
	}
	if kept.String("id") != "keep-me" {
		t.Errorf("existing id replaced: %q", kept.String("id"))
	}
}

func TestDuplicateGroups(t *testing.T) {
	dir := t.TempDir()
	writePost(t, filepath.Join(dir, "a", "index.md"), "---\nid: \"same\"\ntitle: \"Eins\"\n---\n")
	writePost(t, filepath.Join(dir, "b", "index.md"), "---\nid: \"same\"\ntitle: \"Zwei\"\n---\n")
	writePost(t, filepath.Join(dir, "c.md"), "---\ntitle: \"Ohne ID\"\n---\n")
	writePost(t, filepath.Join(dir, "d.md"), "---\ntitle: \"ohne id\"\n---\n")
	writePost(t, filepath.Join(dir, "e.md"), "---\nid: \"unique\"\n---\n")

	groups, err := duplicateGroups(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %v", groups)
	}
	if files := groups["same"]; len(files) != 2 || !strings.HasSuffix(files[0], filepath.Join("a", "index.md")) {
		t.Errorf("same = %v", files)
	}
	if files := groups["title:ohne id"]; len(files) != 2 {
		t.Errorf("title group = %v", files)
	}
}

func TestRemoveDuplicatesAsksBeforeDeleting(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.md")
	second := filepath.Join(dir, "b.md")
	third := filepath.Join(dir, "c.md")
	for _, path := range []string{first, second, third} {
		writePost(t, path, "---\nid: \"same\"\n---\n")
	}

	var out strings.Builder
	input := bufio.NewReader(strings.NewReader("maybe\ny\nn\n"))
	if err := removeDuplicates(dir, input, &out); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(first); err != nil {
		t.Errorf("kept file removed: %v", err)
	}
	if _, err := os.Stat(second); !os.IsNotExist(err) {
		t.Errorf("confirmed duplicate still present: %v", err)
	}
	if _, err := os.Stat(third); err != nil {
		t.Errorf("declined duplicate removed: %v", err)
	}
	for _, want := range []string{"Please enter y or n.", "Removed 1 duplicate files"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
