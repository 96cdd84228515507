// Package logging exposes the structured logger used by every stage. Stages
// depend on the small Logger interface; the CLI injects a go-logger backed
// Provider and tests fall back to NoOp.
package logging

import (
	"maps"
	"strings"
)

// Logger is the structured logging contract. Args are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithFields(fields map[string]any) Logger
}

// Provider hands out named loggers.
type Provider interface {
	GetLogger(name string) Logger
}

const (
	rootModule       = "wp2md"
	ParserModule     = "wp2md.wxr"
	ImagesModule     = "wp2md.images"
	FieldsModule     = "wp2md.frontmatter"
	ConverterModule  = "wp2md.convert"
	WriterModule     = "wp2md.writer"
	PipelineModule   = "wp2md.pipeline"
	fieldPostID      = "post_id"
	fieldPostTitle   = "post_title"
	fieldImageSource = "image_url"
)

// ModuleLogger returns a module-scoped logger, defaulting to NoOp when no
// provider is supplied.
func ModuleLogger(provider Provider, module string) Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return logger.WithFields(map[string]any{
		"module": module,
	})
}

// WithFields attaches fields, skipping nil loggers and empty maps.
func WithFields(logger Logger, fields map[string]any) Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	copied := make(map[string]any, len(fields))
	maps.Copy(copied, fields)
	return logger.WithFields(copied)
}

// WithPost enriches logger with the identity of a post. Empty values are ignored.
func WithPost(logger Logger, id, title string) Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		fields[fieldPostID] = trimmed
	}
	if trimmed := strings.TrimSpace(title); trimmed != "" {
		fields[fieldPostTitle] = trimmed
	}
	return WithFields(logger, fields)
}

// WithImage enriches logger with the source URL of an image.
func WithImage(logger Logger, url string) Logger {
	if strings.TrimSpace(url) == "" {
		return logger
	}
	return WithFields(logger, map[string]any{fieldImageSource: url})
}

// NoOp returns a logger that drops every entry.
func NoOp() Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ Logger = noopLogger{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) Logger {
	return n
}
