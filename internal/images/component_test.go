package images

import (
	"strings"
	"testing"

	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

func TestVariableName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sonne.jpg", "sonne"},
		{"vitamin-d_sonne.jpg", "vitaminDSonne"},
		{"IMG-2041.JPG", "img2041"},
		{"2025-03-28-fruehstueck.webp", "img20250328Fruehstueck"},
		{"new.png", "imgNew"},
		{"---.png", "image"},
		{"archive.tar.gz", "archiveTar"},
	}
	for _, tt := range tests {
		if got := VariableName(tt.in); got != tt.want {
			t.Errorf("VariableName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImageComponents(t *testing.T) {
	post := &models.Post{
		Markdown: "Text\n\n![Sonne](./images/sonne.jpg){position=right}\n\n" +
			"![Noch \\*einmal\\* \"Sonne\"](./images/sonne.jpg \"Titel\")\n\n" +
			"![Sonne PNG](./images/sonne.png)\n\n" +
			"![Fehlt](https://site/fehlt.jpg){position=left}",
		Images: []*models.Image{
			{Source: models.SourceScraped, FileName: "sonne.jpg", Downloaded: true},
			{Source: models.SourceScraped, FileName: "sonne.png", Skipped: true},
			{Source: models.SourceScraped, URL: "https://site/fehlt.jpg", FileName: "fehlt.jpg", Failed: true},
		},
	}

	n := ImageComponents(post, "@/components/elements/Image.astro")
	if n != 3 {
		t.Errorf("ImageComponents() = %d, want 3", n)
	}

	want := "import Image from \"@/components/elements/Image.astro\";\n" +
		"import sonne from \"./images/sonne.jpg\";\n" +
		"import sonne2 from \"./images/sonne.png\";\n\n" +
		"Text\n\n" +
		"<Image src={sonne} alt=\"Sonne\" position=\"right\" />\n\n" +
		"<Image src={sonne} alt=\"Noch *einmal* &quot;Sonne&quot;\" position=\"center\" />\n\n" +
		"<Image src={sonne2} alt=\"Sonne PNG\" position=\"center\" />\n\n" +
		"![Fehlt](https://site/fehlt.jpg)"
	if post.Markdown != want {
		t.Errorf("Markdown =\n%s\nwant\n%s", post.Markdown, want)
	}
}

func TestImageComponentsWithoutLocalImages(t *testing.T) {
	post := &models.Post{Markdown: "![Fern](https://site/fern.jpg){position=center}"}
	if n := ImageComponents(post, "@/components/elements/Image.astro"); n != 0 {
		t.Errorf("ImageComponents() = %d, want 0", n)
	}
	if post.Markdown != "![Fern](https://site/fern.jpg)" {
		t.Errorf("Markdown = %q", post.Markdown)
	}
	if strings.Contains(post.Markdown, "import") {
		t.Errorf("imports written without components: %q", post.Markdown)
	}
}
