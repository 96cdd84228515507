package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
)

const defaultConfigDir = ".wp2md"

// getConfigPath returns the path to a config file in the .wp2md directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ConfigOverrides holds what the command line asked for beyond plain flags
type ConfigOverrides struct {
	SettingsPath *string
	Verbose      bool
	Quiet        bool
}

// flagConfig receives flag values. Only flags the user set are copied onto
// the resolved configuration, so settings file values survive.
var flagConfig = config.Default()

// flagAppliers copies one flag's value from src to dst.
var flagAppliers = map[string]func(dst, src *config.Config){}

func boolFlag(fs *pflag.FlagSet, name, usage string, field func(*config.Config) *bool) {
	fs.BoolVar(field(flagConfig), name, *field(flagConfig), usage)
	flagAppliers[name] = func(dst, src *config.Config) { *field(dst) = *field(src) }
}

func stringFlag(fs *pflag.FlagSet, name, short, usage string, field func(*config.Config) *string) {
	fs.StringVarP(field(flagConfig), name, short, *field(flagConfig), usage)
	flagAppliers[name] = func(dst, src *config.Config) { *field(dst) = *field(src) }
}

func intFlag(fs *pflag.FlagSet, name, usage string, field func(*config.Config) *int) {
	fs.IntVar(field(flagConfig), name, *field(flagConfig), usage)
	flagAppliers[name] = func(dst, src *config.Config) { *field(dst) = *field(src) }
}

// bindIOFlags registers the flags every command reading an export needs.
func bindIOFlags(fs *pflag.FlagSet) {
	stringFlag(fs, "input", "i", "WordPress export (WXR) file", func(c *config.Config) *string { return &c.Input })
	boolFlag(fs, "include-other-types", "include pages and custom post types", func(c *config.Config) *bool { return &c.IncludeOtherTypes })
	boolFlag(fs, "include-drafts", "include draft posts", func(c *config.Config) *bool { return &c.IncludeDrafts })
}

// bindConvertFlags registers the layout, image, pacing and output flags.
func bindConvertFlags(fs *pflag.FlagSet) {
	stringFlag(fs, "output", "o", "output directory", func(c *config.Config) *string { return &c.Output })
	boolFlag(fs, "year-folders", "create a folder per year", func(c *config.Config) *bool { return &c.YearFolders })
	boolFlag(fs, "month-folders", "create a folder per month inside year folders", func(c *config.Config) *bool { return &c.MonthFolders })
	boolFlag(fs, "post-folders", "write each post to <slug>/index.<ext>", func(c *config.Config) *bool { return &c.PostFolders })
	boolFlag(fs, "prefix-date", "prefix post names with their date", func(c *config.Config) *bool { return &c.PrefixDate })
	stringFlag(fs, "collection", "", "collection folder below the output directory", func(c *config.Config) *string { return &c.Collection })
	stringFlag(fs, "file-extension", "", "md or mdx", func(c *config.Config) *string { return &c.FileExtension })

	boolFlag(fs, "save-attached-images", "download images attached to posts", func(c *config.Config) *bool { return &c.SaveAttachedImages })
	boolFlag(fs, "save-scraped-images", "download images found in post bodies", func(c *config.Config) *bool { return &c.SaveScrapedImages })
	boolFlag(fs, "optimize-images", "resize and recompress JPEG and PNG images", func(c *config.Config) *bool { return &c.OptimizeImages })
	intFlag(fs, "image-quality", "JPEG quality for optimized images", func(c *config.Config) *int { return &c.ImageQuality })
	intFlag(fs, "max-image-width", "maximum width of optimized images", func(c *config.Config) *int { return &c.MaxImageWidth })
	stringFlag(fs, "image-base-url", "", "base URL for relative image references", func(c *config.Config) *string { return &c.ImageBaseURL })
	stringFlag(fs, "image-component", "", "import path of the MDX Image component, empty for Markdown images", func(c *config.Config) *string { return &c.ImageComponent })

	boolFlag(fs, "include-time", "include the time in dates", func(c *config.Config) *bool { return &c.IncludeTimeWithDate })
	stringFlag(fs, "date-format", "", "custom date format, e.g. yyyy-MM-dd", func(c *config.Config) *string { return &c.CustomDateFormatting })
	stringFlag(fs, "timezone", "", "timezone dates are rendered in, empty keeps the exported offset", func(c *config.Config) *string { return &c.CustomDateTimezone })
	boolFlag(fs, "use-modified-date", "use the modification date for modDatetime", func(c *config.Config) *bool { return &c.UseModifiedDate })

	boolFlag(fs, "strict-ssl", "verify TLS certificates of image hosts", func(c *config.Config) *bool { return &c.StrictSSL })
	fs.DurationVar(&flagConfig.Timeout, "timeout", flagConfig.Timeout, "HTTP timeout per image request")
	flagAppliers["timeout"] = func(dst, src *config.Config) { dst.Timeout = src.Timeout }
	intFlag(fs, "concurrency", "parallel image downloads", func(c *config.Config) *int { return &c.Concurrency })
	intFlag(fs, "image-delay", "milliseconds between image requests", func(c *config.Config) *int { return &c.ImageFileRequestDelay })
	intFlag(fs, "write-delay", "milliseconds between file writes", func(c *config.Config) *int { return &c.MarkdownFileWriteDelay })

	boolFlag(fs, "skip-existing", "leave existing files alone", func(c *config.Config) *bool { return &c.SkipExisting })
	boolFlag(fs, "force", "overwrite existing files", func(c *config.Config) *bool { return &c.Force })
	boolFlag(fs, "dry-run", "run every stage without writing or downloading", func(c *config.Config) *bool { return &c.DryRun })
	stringFlag(fs, "metrics-file", "", "write Prometheus metrics to this file", func(c *config.Config) *string { return &c.MetricsFile })
}

// bindLogFlags registers the logging flags.
func bindLogFlags(fs *pflag.FlagSet) {
	stringFlag(fs, "log-format", "", "console, json or pretty", func(c *config.Config) *string { return &c.LogFormat })
}

// loadConfig resolves defaults, the settings file and the flags that were set,
// then validates the result.
func loadConfig(fs *pflag.FlagSet, overrides *ConfigOverrides) (*config.Config, error) {
	cfg, err := loadSettings(overrides)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := flagAppliers[f.Name]; ok {
			apply(cfg, flagConfig)
		}
	})

	switch {
	case overrides != nil && overrides.Quiet:
		cfg.LogLevel = "error"
	case overrides != nil && overrides.Verbose:
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSettings layers the settings file over the defaults. An explicit
// settings path must exist; the default one is optional.
func loadSettings(overrides *ConfigOverrides) (*config.Config, error) {
	cfg := config.Default()

	if overrides != nil && overrides.SettingsPath != nil && *overrides.SettingsPath != "" {
		if err := config.LoadFile(*overrides.SettingsPath, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); err == nil {
		if err := config.LoadFile(settingsPath, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ensureConfigExists writes the default settings file unless it exists
func ensureConfigExists(settingsPath string) (bool, error) {
	if _, err := os.Stat(settingsPath); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}

	defaults := config.Default()
	defaults.Input = "export.xml"
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return false, fmt.Errorf("marshaling default settings: %w", err)
	}

	header := fmt.Sprintf("# wp2md settings, generated %s\n", time.Now().Format("2006-01-02"))
	if err := os.WriteFile(settingsPath, []byte(header+string(data)), 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", settingsPath, err)
	}
	return true, nil
}

// describeConfig renders the effective configuration for debug output
func describeConfig(cfg *config.Config) string {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err.Error()
	}
	return strings.TrimSpace(string(data))
}
