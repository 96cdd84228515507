package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
	"github.com/aequinox/gesundes-leben/wp2md/internal/errs"
	"github.com/aequinox/gesundes-leben/wp2md/internal/images"
)

const site = "https://gesundes-leben.example"

const exportHeader = `<?xml version="1.0" encoding="UTF-8" ?>
<rss version="2.0"
	xmlns:excerpt="http://wordpress.org/export/1.2/excerpt/"
	xmlns:content="http://purl.org/rss/1.0/modules/content/"
	xmlns:dc="http://purl.org/dc/elements/1.1/"
	xmlns:wp="http://wordpress.org/export/1.2/"
>
<channel>
	<title>Gesundes Leben</title>
	<link>` + site + `</link>
	<wp:wxr_version>1.2</wp:wxr_version>
	<wp:base_site_url>` + site + `</wp:base_site_url>
`

func postItem(id, title, creator, date, body string, extra string) string {
	return fmt.Sprintf(`	<item>
		<title>%s</title>
		<dc:creator><![CDATA[%s]]></dc:creator>
		<content:encoded><![CDATA[%s]]></content:encoded>
		<excerpt:encoded><![CDATA[Auszug %s]]></excerpt:encoded>
		<wp:post_id>%s</wp:post_id>
		<wp:post_date><![CDATA[%s]]></wp:post_date>
		<wp:post_date_gmt><![CDATA[%s]]></wp:post_date_gmt>
		<wp:status><![CDATA[publish]]></wp:status>
		<wp:post_type><![CDATA[post]]></wp:post_type>
		<category domain="category" nicename="ernaehrung"><![CDATA[Ernährung]]></category>
%s	</item>
`, title, creator, body, id, id, date, date, extra)
}

func coverItem(id, parent, file string) string {
	return fmt.Sprintf(`	<item>
		<title>%s</title>
		<wp:post_id>%s</wp:post_id>
		<wp:post_parent>%s</wp:post_parent>
		<wp:post_type><![CDATA[attachment]]></wp:post_type>
		<wp:attachment_url><![CDATA[%s/wp-content/uploads/2025/03/%s]]></wp:attachment_url>
	</item>
`, file, id, parent, site, file)
}

func thumbnail(id string) string {
	return `		<wp:postmeta>
			<wp:meta_key><![CDATA[_thumbnail_id]]></wp:meta_key>
			<wp:meta_value><![CDATA[` + id + `]]></wp:meta_value>
		</wp:postmeta>
`
}

func writeExport(t *testing.T, items ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.xml")
	content := exportHeader + strings.Join(items, "") + "</channel>\n</rss>\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakeGetter serves images from memory; unknown URLs fail.
type fakeGetter struct {
	mu    sync.Mutex
	files map[string]string
	calls []string
}

func (g *fakeGetter) Fetch(_ context.Context, url string) (*images.FetchResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, url)
	data, ok := g.files[url]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return &images.FetchResult{Data: []byte(data), ContentType: "image/jpeg"}, nil
}

func testConfig(t *testing.T, input string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Input = input
	cfg.Output = filepath.Join(t.TempDir(), "out")
	cfg.ImageFileRequestDelay = 0
	cfg.MarkdownFileWriteDelay = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func newTestProcessor(t *testing.T, cfg *config.Config, getter images.Getter) *PostProcessor {
	t.Helper()
	pp, err := NewPostProcessor(cfg, nil)
	if err != nil {
		t.Fatalf("NewPostProcessor() error = %v", err)
	}
	pp.SetFetcher(getter)
	return pp
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestRunDownloadsAndRewritesImages(t *testing.T) {
	input := writeExport(t,
		postItem("10", "Hallo Welt", "SPfeiffer", "2025-03-28 13:00:16",
			`<p>Erster Absatz.</p>

<p><img src="/wp-content/uploads/2025/03/sonne.jpg" alt="Sonne"></p>`, thumbnail("20")),
		coverItem("20", "10", "cover.jpg"),
	)
	cfg := testConfig(t, input)
	getter := &fakeGetter{files: map[string]string{
		site + "/wp-content/uploads/2025/03/sonne.jpg": "sonne",
		site + "/wp-content/uploads/2025/03/cover.jpg": "cover",
	}}

	pp := newTestProcessor(t, cfg, getter)
	report, err := pp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Processed != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
	if report.ImagesDownloaded != 2 {
		t.Errorf("ImagesDownloaded = %d, want 2", report.ImagesDownloaded)
	}
	if pp.Stage() != StageReported {
		t.Errorf("Stage() = %s", pp.Stage())
	}

	postDir := filepath.Join(cfg.Output, "2025-03-28-hallo-welt")
	content := readFile(t, filepath.Join(postDir, "index.md"))
	if !strings.Contains(content, "![Sonne](./images/sonne.jpg)") {
		t.Errorf("body image not rewritten:\n%s", content)
	}
	if !strings.Contains(content, "./images/cover.jpg") {
		t.Errorf("heroImage missing:\n%s", content)
	}
	if !strings.Contains(content, "author: \"sandra-pfeiffer\"") {
		t.Errorf("author missing:\n%s", content)
	}
	if got := readFile(t, filepath.Join(postDir, "images", "sonne.jpg")); got != "sonne" {
		t.Errorf("sonne.jpg = %q", got)
	}
	if got := readFile(t, filepath.Join(postDir, "images", "cover.jpg")); got != "cover" {
		t.Errorf("cover.jpg = %q", got)
	}
}

func TestRunWritesImageComponentsForMDX(t *testing.T) {
	input := writeExport(t,
		postItem("10", "Hallo Welt", "SPfeiffer", "2025-03-28 13:00:16",
			`<figure class="wp-block-image alignright"><img src="/wp-content/uploads/2025/03/sonne.jpg" alt="Sonne"/></figure>

<p><img src="/wp-content/uploads/2025/03/fehlt.jpg" alt="Fehlt"></p>`, ""),
	)
	cfg := testConfig(t, input)
	cfg.FileExtension = "mdx"
	getter := &fakeGetter{files: map[string]string{
		site + "/wp-content/uploads/2025/03/sonne.jpg": "sonne",
	}}

	report, err := newTestProcessor(t, cfg, getter).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Processed != 1 || report.ImagesFailed != 1 {
		t.Fatalf("report = %+v", report)
	}

	content := readFile(t, filepath.Join(cfg.Output, "2025-03-28-hallo-welt", "index.mdx"))
	for _, want := range []string{
		"---\n\nimport Image from \"@/components/elements/Image.astro\";\nimport sonne from \"./images/sonne.jpg\";\n\n",
		`<Image src={sonne} alt="Sonne" position="right" />`,
		"![Fehlt](/wp-content/uploads/2025/03/fehlt.jpg)",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("post missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "{position=") {
		t.Errorf("position mark left in post:\n%s", content)
	}
}

func TestRunDropsFailedCover(t *testing.T) {
	input := writeExport(t,
		postItem("10", "Hallo Welt", "SPfeiffer", "2025-03-28 13:00:16", `<p>Text</p>`, thumbnail("20")),
		coverItem("20", "10", "cover.jpg"),
	)
	cfg := testConfig(t, input)

	report, err := newTestProcessor(t, cfg, &fakeGetter{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.ImagesFailed != 1 || report.Processed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "cover.jpg") {
		t.Errorf("Errors = %v", report.Errors)
	}

	content := readFile(t, filepath.Join(cfg.Output, "2025-03-28-hallo-welt", "index.md"))
	if strings.Contains(content, "heroImage") {
		t.Errorf("failed cover still referenced:\n%s", content)
	}
}

func TestRunCountsCollisions(t *testing.T) {
	input := writeExport(t,
		postItem("10", "Hallo Welt", "SPfeiffer", "2025-03-28 13:00:16", `<p>Erste Fassung</p>`, ""),
		postItem("11", "Hallo Welt", "SPfeiffer", "2025-03-28 18:00:00", `<p>Zweite Fassung</p>`, ""),
	)
	cfg := testConfig(t, input)

	report, err := newTestProcessor(t, cfg, &fakeGetter{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Collisions != 1 {
		t.Errorf("Collisions = %d, want 1", report.Collisions)
	}
	content := readFile(t, filepath.Join(cfg.Output, "2025-03-28-hallo-welt", "index.md"))
	if !strings.Contains(content, "Zweite Fassung") {
		t.Errorf("last post did not win:\n%s", content)
	}
}

func TestRunRecordsFailedPostsInOrder(t *testing.T) {
	input := writeExport(t,
		postItem("10", "Erster", "SPfeiffer", "2025-03-28 13:00:16", `<p>Eins</p>`, ""),
		postItem("11", "Zweiter", "ghost", "2025-03-29 13:00:16", `<p>Zwei</p>`, ""),
		postItem("12", "Dritter", "KRenner", "2025-03-30 13:00:16", `<p>Drei</p>`, ""),
	)
	cfg := testConfig(t, input)

	report, err := newTestProcessor(t, cfg, &fakeGetter{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Processed != 2 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if !report.Succeeded() {
		t.Error("Succeeded() = false")
	}

	wantIDs := []string{"10", "11", "12"}
	wantStatus := []ProcessingStatus{StatusSuccess, StatusError, StatusSuccess}
	for i, res := range report.Results {
		if res.PostID != wantIDs[i] || res.Status != wantStatus[i] {
			t.Errorf("Results[%d] = %s/%s, want %s/%s", i, res.PostID, res.Status, wantIDs[i], wantStatus[i])
		}
	}
	failed := report.Results[1].Error
	if !goerrors.IsCategory(failed, errs.CategoryExtraction) || !strings.Contains(failed.Error(), "ghost") {
		t.Errorf("failed post error = %v", failed)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output, "2025-03-29-zweiter")); !os.IsNotExist(err) {
		t.Errorf("failed post was written: %v", err)
	}
}

func TestRunParseErrorIsFatal(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.xml"))

	report, err := newTestProcessor(t, cfg, &fakeGetter{}).Run(context.Background())
	if err == nil || report != nil {
		t.Fatalf("Run() = %v, %v; want fatal error", report, err)
	}
	if !errs.IsFatal(err) || !goerrors.IsCategory(err, errs.CategoryParse) {
		t.Errorf("error = %v", err)
	}
}

func TestRunUnwritableOutputIsFatal(t *testing.T) {
	input := writeExport(t, postItem("10", "Hallo Welt", "SPfeiffer", "2025-03-28 13:00:16", `<p>Text</p>`, ""))
	cfg := testConfig(t, input)
	cfg.Output = filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(cfg.Output, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := newTestProcessor(t, cfg, &fakeGetter{}).Run(context.Background())
	if !goerrors.IsCategory(err, errs.CategoryOutput) {
		t.Errorf("Run() error = %v, want output error", err)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	input := writeExport(t,
		postItem("10", "Hallo Welt", "SPfeiffer", "2025-03-28 13:00:16",
			`<p><img src="/wp-content/uploads/2025/03/sonne.jpg" alt="Sonne"></p>`, ""),
	)
	cfg := testConfig(t, input)
	cfg.DryRun = true
	getter := &fakeGetter{files: map[string]string{site + "/wp-content/uploads/2025/03/sonne.jpg": "sonne"}}

	report, err := newTestProcessor(t, cfg, getter).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Processed != 1 || report.Results[0].Status != StatusDryRun {
		t.Fatalf("report = %+v", report)
	}
	if report.ImagesSkipped != 1 || len(getter.calls) != 0 {
		t.Errorf("images skipped = %d, fetches = %v", report.ImagesSkipped, getter.calls)
	}
	if _, err := os.Stat(cfg.Output); !os.IsNotExist(err) {
		t.Errorf("dry run created the output directory: %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	input := writeExport(t, postItem("10", "Hallo Welt", "SPfeiffer", "2025-03-28 13:00:16", `<p>Text</p>`, ""))
	cfg := testConfig(t, input)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestProcessor(t, cfg, &fakeGetter{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunReportsProgress(t *testing.T) {
	input := writeExport(t,
		postItem("10", "Erster", "SPfeiffer", "2025-03-28 13:00:16", `<p>Eins</p>`, ""),
		postItem("11", "Zweiter", "KRenner", "2025-03-29 13:00:16", `<p>Zwei</p>`, ""),
	)
	pp := newTestProcessor(t, testConfig(t, input), &fakeGetter{})

	var seen []string
	pp.SetProgress(func(done, total int) {
		seen = append(seen, fmt.Sprintf("%d/%d", done, total))
	})
	if _, err := pp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Join(seen, ",") != "1/2,2/2" {
		t.Errorf("progress = %v", seen)
	}
}

func TestReportSucceeded(t *testing.T) {
	tests := []struct {
		name    string
		results []ProcessingResult
		want    bool
	}{
		{name: "empty run", want: true},
		{name: "all failed", results: []ProcessingResult{{Status: StatusError}}, want: false},
		{name: "one skipped", results: []ProcessingResult{{Status: StatusError}, {Status: StatusSkipped}}, want: true},
		{name: "dry run", results: []ProcessingResult{{Status: StatusDryRun}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{}
			for _, res := range tt.results {
				r.add(res)
			}
			if got := r.Succeeded(); got != tt.want {
				t.Errorf("Succeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportPrint(t *testing.T) {
	r := &Report{}
	r.add(ProcessingResult{PostID: "10", Title: "Hallo", Status: StatusSuccess})
	r.add(ProcessingResult{PostID: "11", Title: "Kaputt", Status: StatusError, Error: errors.New("boom\ndetails")})

	var b strings.Builder
	r.Print(&b)
	out := b.String()
	for _, want := range []string{"1 processed", "1 failed", "post 11 (Kaputt): boom; details"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print() missing %q:\n%s", want, out)
		}
	}
}
