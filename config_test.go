package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/pflag"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindIOFlags(fs)
	bindConvertFlags(fs)
	bindLogFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return fs
}

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigLayersSettingsAndFlags(t *testing.T) {
	settings := writeSettings(t, "input: from-file.xml\noutput: site\nconcurrency: 4\nfile_extension: mdx\n")
	fs := newFlagSet(t, "--output", "flag-out", "--dry-run")

	cfg, err := loadConfig(fs, &ConfigOverrides{SettingsPath: &settings})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Input != "from-file.xml" {
		t.Errorf("Input = %q, want value from settings file", cfg.Input)
	}
	if cfg.Output != "flag-out" {
		t.Errorf("Output = %q, want flag value", cfg.Output)
	}
	if cfg.Concurrency != 4 || cfg.FileExtension != "mdx" {
		t.Errorf("settings lost: concurrency %d, extension %q", cfg.Concurrency, cfg.FileExtension)
	}
	if !cfg.DryRun {
		t.Error("DryRun flag not applied")
	}
	if !cfg.SkipExisting {
		t.Error("unset flag clobbered the default")
	}
}

func TestLoadConfigLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		overrides ConfigOverrides
		want      string
	}{
		{name: "default", want: "info"},
		{name: "verbose", overrides: ConfigOverrides{Verbose: true}, want: "debug"},
		{name: "quiet wins", overrides: ConfigOverrides{Verbose: true, Quiet: true}, want: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overrides := tt.overrides
			cfg, err := loadConfig(newFlagSet(t, "-i", "export.xml"), &overrides)
			if err != nil {
				t.Fatalf("loadConfig() error = %v", err)
			}
			if cfg.LogLevel != tt.want {
				t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, tt.want)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	tests := []struct {
		name      string
		args      []string
		overrides *ConfigOverrides
		want      string
	}{
		{name: "missing input", want: "input file is required"},
		{name: "bad extension", args: []string{"-i", "x.xml", "--file-extension", "txt"}, want: "FileExtension"},
		{name: "month without year", args: []string{"-i", "x.xml", "--month-folders"}, want: "month folders require year folders"},
		{name: "explicit settings missing", args: []string{"-i", "x.xml"}, overrides: &ConfigOverrides{SettingsPath: &missing}, want: "missing.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(newFlagSet(t, tt.args...), tt.overrides)
			if err == nil {
				t.Fatal("loadConfig() succeeded")
			}
			if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
				t.Errorf("error category: %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestEnsureConfigExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), defaultConfigDir, "settings.yaml")

	created, err := ensureConfigExists(path)
	if err != nil || !created {
		t.Fatalf("ensureConfigExists() = %v, %v", created, err)
	}
	created, err = ensureConfigExists(path)
	if err != nil || created {
		t.Fatalf("second ensureConfigExists() = %v, %v", created, err)
	}

	cfg := config.Default()
	if err := config.LoadFile(path, cfg); err != nil {
		t.Fatalf("generated settings do not load: %v", err)
	}
	if cfg.Input != "export.xml" {
		t.Errorf("Input = %q", cfg.Input)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("generated settings invalid: %v", err)
	}
}

func TestDescribeConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Input = "export.xml"
	out := describeConfig(cfg)
	if !strings.Contains(out, "input: export.xml") {
		t.Errorf("describeConfig() = %s", out)
	}
}
