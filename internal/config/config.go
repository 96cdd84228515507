// Package config holds the process-wide conversion settings. A Config is
// resolved once at startup (defaults, settings file, flags), validated, and
// treated as read-only by every stage afterwards.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/aequinox/gesundes-leben/wp2md/internal/errs"
)

// Config holds all configuration options for the converter.
type Config struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	// Layout
	YearFolders   bool   `yaml:"year_folders"`
	MonthFolders  bool   `yaml:"month_folders"`
	PostFolders   bool   `yaml:"post_folders"`
	PrefixDate    bool   `yaml:"prefix_date"`
	Collection    string `yaml:"collection"`
	FileExtension string `yaml:"file_extension"`
	SlugSeparator string `yaml:"slug_separator"`

	// Images
	SaveAttachedImages bool   `yaml:"save_attached_images"`
	SaveScrapedImages  bool   `yaml:"save_scraped_images"`
	OptimizeImages     bool   `yaml:"optimize_images"`
	ImageQuality       int    `yaml:"image_quality"`
	MaxImageWidth      int    `yaml:"max_image_width"`
	ImageBaseURL       string `yaml:"image_base_url"`

	// Selection
	IncludeOtherTypes bool     `yaml:"include_other_types"`
	IncludeDrafts     bool     `yaml:"include_drafts"`
	FilterCategories  []string `yaml:"filter_categories"`

	// Frontmatter
	FrontmatterFields    []string          `yaml:"frontmatter_fields"`
	MetaFields           map[string]string `yaml:"meta_fields"`
	IncludeTimeWithDate  bool              `yaml:"include_time_with_date"`
	CustomDateFormatting string            `yaml:"custom_date_formatting"`
	CustomDateTimezone   string            `yaml:"custom_date_timezone"`
	UseModifiedDate      bool              `yaml:"use_modified_date"`
	AuthorMapping        map[string]string `yaml:"author_mapping"`
	CategoryMapping      map[string]string `yaml:"category_mapping"`
	Categories           []string          `yaml:"categories"`
	BlockquoteComponent  string            `yaml:"blockquote_component"`
	ImageComponent       string            `yaml:"image_component"`

	// Network and pacing
	StrictSSL              bool          `yaml:"strict_ssl"`
	Timeout                time.Duration `yaml:"timeout"`
	Concurrency            int           `yaml:"concurrency"`
	ImageFileRequestDelay  int           `yaml:"image_file_request_delay"`
	MarkdownFileWriteDelay int           `yaml:"markdown_file_write_delay"`

	// Output control
	SkipExisting bool `yaml:"skip_existing"`
	Force        bool `yaml:"force"`
	DryRun       bool `yaml:"dry_run"`

	// Ambient
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsFile string `yaml:"metrics_file"`
}

// DefaultFrontmatterFields is the field order written when no list is configured.
var DefaultFrontmatterFields = []string{
	"id",
	"title",
	"author",
	"slug",
	"date:pubDatetime",
	"modDatetime",
	"description",
	"keywords",
	"categories",
	"group",
	"tags",
	"heroImage",
	"draft",
	"featured",
}

// DefaultImageComponent is the import path of the Image component MDX posts
// render stored images with.
const DefaultImageComponent = "@/components/elements/Image.astro"

// DefaultCategories is the blog's category vocabulary.
var DefaultCategories = []string{
	"Ernährung",
	"Immunsystem",
	"Lesenswertes",
	"Lifestyle & Psyche",
	"Mikronährstoffe",
	"Organsysteme",
	"Wissenschaftliches",
	"Wissenswertes",
}

// Default returns configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Output:                 "./output",
		PostFolders:            true,
		PrefixDate:             true,
		FileExtension:          "md",
		SlugSeparator:          "-",
		SaveAttachedImages:     true,
		SaveScrapedImages:      true,
		ImageQuality:           85,
		MaxImageWidth:          2000,
		IncludeDrafts:          true,
		FilterCategories:       []string{"uncategorized"},
		FrontmatterFields:      append([]string(nil), DefaultFrontmatterFields...),
		MetaFields:             map[string]string{},
		AuthorMapping:          defaultAuthorMapping(),
		CategoryMapping:        defaultCategoryMapping(),
		Categories:             append([]string(nil), DefaultCategories...),
		ImageComponent:         DefaultImageComponent,
		StrictSSL:              true,
		Timeout:                30 * time.Second,
		Concurrency:            1,
		ImageFileRequestDelay:  500,
		MarkdownFileWriteDelay: 25,
		SkipExisting:           true,
		LogLevel:               "info",
		LogFormat:              "console",
	}
}

func defaultAuthorMapping() map[string]string {
	return map[string]string{
		"KRenner":   "kai-renner",
		"Kai":       "kai-renner",
		"Sandra":    "sandra-pfeiffer",
		"SPfeiffer": "sandra-pfeiffer",
		"admin":     "healthy-life-author",
	}
}

// defaultCategoryMapping maps lowercased WordPress category names onto the
// vocabulary. Names already in the vocabulary need no entry.
func defaultCategoryMapping() map[string]string {
	return map[string]string{
		"nutrition":        "Ernährung",
		"health":           "Wissenswertes",
		"mental health":    "Lifestyle & Psyche",
		"fitness":          "Lifestyle & Psyche",
		"immune system":    "Immunsystem",
		"prevention":       "Wissenswertes",
		"natural remedies": "Wissenswertes",
		"micronutrients":   "Mikronährstoffe",
		"organs":           "Organsysteme",
		"scientific":       "Wissenschaftliches",
		"interesting":      "Lesenswertes",
	}
}

// LoadFile layers the YAML settings file at path over cfg. Keys missing from
// the file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Config(fmt.Errorf("reading settings file %s: %w", path, err))
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errs.Config(fmt.Errorf("parsing settings file %s: %w", path, err))
	}

	return nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Input, validation.Required.Error("input file is required")),
		validation.Field(&c.Output, validation.Required.Error("output directory is required")),
		validation.Field(&c.FileExtension, validation.Required, validation.In("md", "mdx")),
		validation.Field(&c.SlugSeparator, validation.Required, validation.Length(1, 3), validation.By(func(value any) error {
			if strings.ContainsFunc(value.(string), func(r rune) bool {
				return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			}) {
				return validation.NewError("wp2md.config.slug_separator", "slug separator must not contain letters or digits")
			}
			return nil
		})),
		validation.Field(&c.Concurrency, validation.Min(1)),
		validation.Field(&c.ImageQuality, validation.Min(1), validation.Max(100)),
		validation.Field(&c.MaxImageWidth, validation.Min(100)),
		validation.Field(&c.ImageFileRequestDelay, validation.Min(0)),
		validation.Field(&c.MarkdownFileWriteDelay, validation.Min(0)),
		validation.Field(&c.FrontmatterFields, validation.Required),
		validation.Field(&c.Categories, validation.Required),
		validation.Field(&c.MonthFolders, validation.By(func(value any) error {
			if value.(bool) && !c.YearFolders {
				return validation.NewError("wp2md.config.month_folders", "month folders require year folders")
			}
			return nil
		})),
		validation.Field(&c.CustomDateTimezone, validation.By(func(value any) error {
			if _, err := time.LoadLocation(strings.TrimSpace(value.(string))); err != nil {
				return validation.NewError("wp2md.config.timezone", fmt.Sprintf("unknown timezone %q", value))
			}
			return nil
		})),
		validation.Field(&c.LogFormat, validation.In("console", "json", "pretty")),
	)
	if err != nil {
		return errs.Config(err)
	}
	return nil
}

// Location returns the timezone dates are rendered in, or nil when dates
// keep the offset they were exported with.
func (c *Config) Location() *time.Location {
	if strings.TrimSpace(c.CustomDateTimezone) == "" {
		return nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.CustomDateTimezone))
	if err != nil {
		return nil
	}
	return loc
}

// UsesImageComponent reports whether stored images are written as Image
// components instead of Markdown images.
func (c *Config) UsesImageComponent() bool {
	return c.FileExtension == "mdx" && strings.TrimSpace(c.ImageComponent) != ""
}

// ImageRequestDelay returns the pause between two image requests.
func (c *Config) ImageRequestDelay() time.Duration {
	return time.Duration(c.ImageFileRequestDelay) * time.Millisecond
}

// FileWriteDelay returns the pause between two Markdown writes.
func (c *Config) FileWriteDelay() time.Duration {
	return time.Duration(c.MarkdownFileWriteDelay) * time.Millisecond
}

// ShouldSkipExisting reports whether existing files are left alone. Force
// always wins over skip.
func (c *Config) ShouldSkipExisting() bool {
	return c.SkipExisting && !c.Force
}

// Author returns the mapped author slug for a WordPress login.
func (c *Config) Author(creator string) (string, bool) {
	slug, ok := c.AuthorMapping[creator]
	return slug, ok
}

// MappedCategory looks up the vocabulary entry for a WordPress category name.
func (c *Config) MappedCategory(name string) (string, bool) {
	mapped, ok := c.CategoryMapping[strings.ToLower(strings.TrimSpace(name))]
	return mapped, ok
}

// IsFilteredCategory reports whether a category is excluded from output.
func (c *Config) IsFilteredCategory(name string) bool {
	name = strings.TrimSpace(name)
	for _, filtered := range c.FilterCategories {
		if strings.EqualFold(strings.TrimSpace(filtered), name) {
			return true
		}
	}
	return false
}

// FieldSpec is one entry of the frontmatter field list.
type FieldSpec struct {
	Name string
	As   string
}

// Fields parses the configured frontmatter field list. Entries are either a
// field name or "name:alias".
func (c *Config) Fields() []FieldSpec {
	specs := make([]FieldSpec, 0, len(c.FrontmatterFields))
	for _, raw := range c.FrontmatterFields {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		name, alias, found := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		alias = strings.TrimSpace(alias)
		if !found || alias == "" {
			alias = name
		}
		specs = append(specs, FieldSpec{Name: name, As: alias})
	}
	return specs
}
