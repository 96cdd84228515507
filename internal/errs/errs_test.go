package errs

import (
	"errors"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestCategories(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		category goerrors.Category
		fatal    bool
	}{
		{name: "config", err: Config(cause), category: goerrors.CategoryValidation, fatal: true},
		{name: "parse", err: Parse(cause, "malformed export"), category: CategoryParse, fatal: true},
		{name: "output", err: OutputNotWritable(cause, "read only"), category: CategoryOutput, fatal: true},
		{name: "field", err: Field(cause, "post 1: author"), category: CategoryExtraction},
		{name: "convert", err: Convert(cause, "post 1"), category: CategoryConversion},
		{name: "network", err: Network(cause, "downloading"), category: CategoryNetwork},
		{name: "filesystem", err: Filesystem(cause, "writing"), category: CategoryFilesystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !goerrors.IsCategory(tt.err, tt.category) {
				t.Errorf("category of %v, want %s", tt.err, tt.category)
			}
			if IsFatal(tt.err) != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", IsFatal(tt.err), tt.fatal)
			}
		})
	}
}

func TestConfigMessageCarriesCause(t *testing.T) {
	err := Config(errors.New("input file is required"))
	if !strings.Contains(err.Error(), "invalid configuration") || !strings.Contains(err.Error(), "input file is required") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNilAndRewrap(t *testing.T) {
	if Config(nil) != nil || Parse(nil, "x") != nil || IsFatal(nil) {
		t.Error("nil errors must stay nil")
	}

	inner := Parse(errors.New("bad xml"), "malformed export")
	if outer := Filesystem(inner, "other"); !goerrors.IsCategory(outer, CategoryParse) {
		t.Errorf("rewrap changed the category: %v", outer)
	}
}
