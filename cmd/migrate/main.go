// Command migrate maintains directories of converted posts: it backfills
// missing frontmatter ids and removes posts written twice.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/aequinox/gesundes-leben/wp2md/internal/document"
	"github.com/aequinox/gesundes-leben/wp2md/internal/fsutil"
)

const idKey = "id"

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <add-ids|remove-duplicates> <posts-directory>")
	}

	command := os.Args[1]
	postsDir := os.Args[2]

	switch command {
	case "add-ids":
		added, err := addIDs(postsDir, uuid.NewString)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Added ids to %d files\n", added)
	case "remove-duplicates":
		if err := removeDuplicates(postsDir, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

func isPost(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".md" || ext == ".mdx"
}

// walkPosts calls fn for every Markdown file below dir, in lexical order.
func walkPosts(dir string, fn func(path string) error) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Continue on errors
		}
		if d.IsDir() || !isPost(path) {
			return nil
		}
		if err := fn(path); err != nil {
			log.Printf("Error processing %s: %v", path, err)
		}
		return nil
	})
}

func idOf(doc *document.Document) string {
	value, ok := doc.Get(idKey)
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// addIDs gives every post without an id a fresh one, written as the first
// frontmatter key.
func addIDs(dir string, newID func() string) (int, error) {
	added := 0
	err := walkPosts(dir, func(path string) error {
		doc, body, err := document.Read(path)
		if err != nil {
			return err
		}
		if idOf(doc) != "" {
			return nil
		}

		updated := document.New()
		updated.Set(idKey, newID())
		for _, key := range doc.Keys() {
			if key == idKey {
				continue
			}
			value, _ := doc.Get(key)
			updated.Set(key, value)
		}

		data, err := document.Encode(updated, body)
		if err != nil {
			return err
		}
		if err := fsutil.WriteFile(path, data); err != nil {
			return err
		}
		log.Printf("Added id to %s", path)
		added++
		return nil
	})
	return added, err
}

// duplicateGroups groups posts sharing an id, falling back to the title for
// posts without one. Groups are sorted; the first file of each is kept.
func duplicateGroups(dir string) (map[string][]string, error) {
	groups := make(map[string][]string)
	err := walkPosts(dir, func(path string) error {
		doc, _, err := document.Read(path)
		if err != nil {
			return err
		}
		key := idOf(doc)
		if key == "" {
			title := strings.ToLower(strings.TrimSpace(doc.String("title")))
			if title == "" {
				return nil
			}
			key = "title:" + title
		}
		groups[key] = append(groups[key], path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	for key, files := range groups {
		if len(files) <= 1 {
			delete(groups, key)
			continue
		}
		sort.Strings(files)
	}
	return groups, nil
}

func removeDuplicates(postsDir string, reader *bufio.Reader, out io.Writer) error {
	groups, err := duplicateGroups(postsDir)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	totalRemoved := 0
	for _, key := range keys {
		files := groups[key]
		fmt.Fprintf(out, "\nFound %d duplicates for %s:\n", len(files), key)
		for i, file := range files {
			if i == 0 {
				fmt.Fprintf(out, "  KEEP: %s\n", file)
				continue
			}

			if confirmDelete(reader, out, file) {
				if err := os.Remove(file); err != nil {
					log.Printf("Error removing %s: %v", file, err)
				} else {
					totalRemoved++
					fmt.Fprintf(out, "  REMOVED: %s\n", file)
				}
			} else {
				fmt.Fprintf(out, "  SKIP: %s\n", file)
			}
		}
	}

	fmt.Fprintf(out, "\nRemoved %d duplicate files\n", totalRemoved)
	return nil
}

func confirmDelete(reader *bufio.Reader, out io.Writer, path string) bool {
	for {
		fmt.Fprintf(out, "  DELETE %s? [y/N]: ", path)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			if err != io.EOF {
				log.Printf("Error reading input: %v", err)
			}
			return false
		}
		response := strings.ToLower(strings.TrimSpace(input))
		switch response {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Fprintln(out, "  Please enter y or n.")
		}
	}
}
