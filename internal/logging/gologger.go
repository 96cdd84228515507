package logging

import (
	"fmt"
	"sort"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// GoLoggerConfig captures the options exposed by the go-logger adapter.
type GoLoggerConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// GoLoggerProvider wraps go-logger so it satisfies Provider.
type GoLoggerProvider struct {
	root *glog.BaseLogger
}

// NewGoLoggerProvider constructs a provider backed by go-logger.
func NewGoLoggerProvider(cfg GoLoggerConfig) (*GoLoggerProvider, error) {
	options := []glog.Option{}

	if level := normalizeLevel(cfg.Level); level != "" {
		options = append(options, glog.WithLevel(level))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "console":
		options = append(options, glog.WithLoggerTypeConsole())
	case "json":
		options = append(options, glog.WithLoggerTypeJSON())
	case "pretty":
		options = append(options, glog.WithLoggerTypePretty())
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}

	if cfg.AddSource {
		options = append(options, glog.WithAddSource(true))
	}

	return &GoLoggerProvider{root: glog.NewLogger(options...)}, nil
}

// GetLogger returns a named child logger.
func (p *GoLoggerProvider) GetLogger(name string) Logger {
	if p == nil {
		return NoOp()
	}
	name = strings.TrimSpace(name)
	var inner glog.Logger
	if name == "" {
		inner = p.root
	} else {
		inner = p.root.GetLogger(name)
	}
	return wrapGoLogger(inner)
}

func wrapGoLogger(inner glog.Logger) Logger {
	if inner == nil {
		return NoOp()
	}
	return &goLoggerAdapter{inner: inner}
}

type goLoggerAdapter struct {
	inner glog.Logger
}

func (l *goLoggerAdapter) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *goLoggerAdapter) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *goLoggerAdapter) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *goLoggerAdapter) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

func (l *goLoggerAdapter) WithFields(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}

	if with, ok := l.inner.(glog.FieldsLogger); ok {
		copied := make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		return wrapGoLogger(with.WithFields(copied))
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	if with, ok := l.inner.(interface{ With(...any) *glog.BaseLogger }); ok {
		return wrapGoLogger(with.With(args...))
	}
	return l
}

func normalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return ""
	case "trace":
		return glog.Trace
	case "debug":
		return glog.Debug
	case "info":
		return glog.Info
	case "warn", "warning":
		return glog.Warn
	case "error":
		return glog.Error
	default:
		return ""
	}
}
