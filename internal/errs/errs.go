// Package errs defines the error taxonomy shared by the conversion stages.
// Errors that cross a stage boundary are wrapped with a category and a text
// code so the orchestrator can decide between aborting and skipping a post.
package errs

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// CategoryParse marks unreadable or malformed input exports.
	CategoryParse goerrors.Category = "parse"
	// CategoryNetwork marks failed image fetches.
	CategoryNetwork goerrors.Category = "network"
	// CategoryFilesystem marks failed reads, writes and renames of one file.
	CategoryFilesystem goerrors.Category = "filesystem"
	// CategoryOutput marks an output directory that cannot be written at all.
	CategoryOutput goerrors.Category = "output"
	// CategoryExtraction marks frontmatter fields that could not be derived.
	CategoryExtraction goerrors.Category = "extraction"
	// CategoryConversion marks HTML bodies that could not be converted.
	CategoryConversion goerrors.Category = "conversion"
)

const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeParseFailed     = "WXR_PARSE_FAILED"
	CodeFieldExtraction = "FIELD_EXTRACTION_FAILED"
	CodeConvertFailed   = "CONVERT_FAILED"
	CodeDownloadFailed  = "IMAGE_DOWNLOAD_FAILED"
	CodeWriteFailed     = "WRITE_FAILED"
	CodeOutputReadOnly  = "OUTPUT_NOT_WRITABLE"
)

// Config wraps a configuration validation failure. These are fatal.
func Config(err error) error {
	if err == nil {
		return nil
	}
	return wrap(err, goerrors.CategoryValidation, "invalid configuration: "+err.Error(), CodeConfigInvalid)
}

// Parse wraps a failure to read or decode the export. These are fatal.
func Parse(err error, message string) error {
	return wrap(err, CategoryParse, message, CodeParseFailed)
}

// Field wraps the aggregated frontmatter errors of a single post.
func Field(err error, message string) error {
	return wrap(err, CategoryExtraction, message, CodeFieldExtraction)
}

// Convert wraps a failed HTML to Markdown conversion of one post.
func Convert(err error, message string) error {
	return wrap(err, CategoryConversion, message, CodeConvertFailed)
}

// Network wraps a failed image request.
func Network(err error, message string) error {
	return wrap(err, CategoryNetwork, message, CodeDownloadFailed)
}

// Filesystem wraps a failed write of one file.
func Filesystem(err error, message string) error {
	return wrap(err, CategoryFilesystem, message, CodeWriteFailed)
}

// OutputNotWritable wraps the fatal case of an unusable output directory.
func OutputNotWritable(err error, message string) error {
	return wrap(err, CategoryOutput, message, CodeOutputReadOnly)
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.IsCategory(err, goerrors.CategoryValidation) ||
		goerrors.IsCategory(err, CategoryParse) ||
		goerrors.IsCategory(err, CategoryOutput)
}

func wrap(err error, category goerrors.Category, message, code string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, category, message).WithTextCode(code)
}
