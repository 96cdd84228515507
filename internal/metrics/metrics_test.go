package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteFile(t *testing.T) {
	r := New()
	r.Post("written")
	r.Post("written")
	r.Post("failed")
	r.Images("downloaded", 3)
	r.Images("failed", 0)
	r.DroppedCategories(2)
	r.Collision()
	r.Stage("parse", 20*time.Millisecond)
	r.Duration(1500 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "wp2md.prom")
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{
		`wp2md_posts_total{status="written"} 2`,
		`wp2md_posts_total{status="failed"} 1`,
		`wp2md_images_total{outcome="downloaded"} 3`,
		`wp2md_categories_dropped_total 2`,
		`wp2md_path_collisions_total 1`,
		`wp2md_stage_duration_seconds_count{stage="parse"} 1`,
		`wp2md_run_duration_seconds 1.5`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, `outcome="failed"`) {
		t.Errorf("zero image count was recorded:\n%s", text)
	}
}

func TestGatherer(t *testing.T) {
	r := New()
	r.Post("skipped")
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "wp2md_posts_total" {
			found = true
		}
	}
	if !found {
		t.Error("posts_total not gathered")
	}
}
