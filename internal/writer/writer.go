// Package writer serialises posts to Markdown files with YAML frontmatter.
package writer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/aequinox/gesundes-leben/wp2md/internal/document"
	"github.com/aequinox/gesundes-leben/wp2md/internal/errs"
	"github.com/aequinox/gesundes-leben/wp2md/internal/fsutil"
	"github.com/aequinox/gesundes-leben/wp2md/internal/logging"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

// Options controls what happens to existing files.
type Options struct {
	SkipExisting bool
	Force        bool
	DryRun       bool
	Delay        time.Duration
}

// Outcome is what Write did with a post.
type Outcome string

const (
	OutcomeWritten Outcome = "written"
	OutcomeSkipped Outcome = "skipped"
	OutcomeDryRun  Outcome = "dry-run"
	OutcomeFailed  Outcome = "failed"
)

// Result reports the write of one post.
type Result struct {
	Path      string
	Outcome   Outcome
	Collision bool
	Err       error
}

// Writer writes posts one at a time, paced by Options.Delay.
type Writer struct {
	opts    Options
	limiter *rate.Limiter
	logger  logging.Logger
	claimed map[string]*models.Post
}

// New creates a writer.
func New(opts Options, logger logging.Logger) *Writer {
	if logger == nil {
		logger = logging.NoOp()
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Writer{
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		claimed: map[string]*models.Post{},
	}
}

// CheckOutput verifies that dir can be written. A dry run only checks that
// an existing dir is a directory.
func (w *Writer) CheckOutput(dir string) error {
	if w.opts.DryRun {
		info, err := os.Stat(dir)
		if err == nil && !info.IsDir() {
			return errs.OutputNotWritable(fmt.Errorf("%s is not a directory", dir),
				fmt.Sprintf("output directory %s is not writable: not a directory", dir))
		}
		return nil
	}
	if err := fsutil.CheckWritable(dir); err != nil {
		return errs.OutputNotWritable(err, fmt.Sprintf("output directory %s is not writable: %v", dir, err))
	}
	return nil
}

// Write serialises post to post.Path. Two posts of one run mapping to the
// same path are a collision: the later one overwrites the earlier one.
func (w *Writer) Write(ctx context.Context, post *models.Post) Result {
	res := Result{Path: post.Path}
	logger := logging.WithPost(w.logger, post.ID, post.Title)

	if post.Path == "" || post.Frontmatter == nil {
		res.Outcome = OutcomeFailed
		res.Err = errs.Filesystem(errors.New("post has no path or frontmatter"),
			fmt.Sprintf("post %s is not ready to be written", post.ID))
		return res
	}

	owner, taken := w.claimed[post.Path]
	if taken && owner != post {
		res.Collision = true
		logger.Warn("output path already used by another post, overwriting",
			"path", post.Path, "previous_post_id", owner.ID, "previous_title", owner.Title)
	}
	w.claimed[post.Path] = post

	if !taken && w.skipExisting() && fsutil.Exists(post.Path) {
		res.Outcome = OutcomeSkipped
		logger.Debug("file exists, skipping", "path", post.Path)
		return res
	}

	data, err := document.Encode(post.Frontmatter, post.Markdown)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = errs.Filesystem(err, fmt.Sprintf("encoding post %s: %v", post.ID, err))
		return res
	}

	if w.opts.DryRun {
		res.Outcome = OutcomeDryRun
		logger.Debug("dry run, not writing", "path", post.Path, "bytes", len(data))
		return res
	}

	if err := w.limiter.Wait(ctx); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = errs.Filesystem(err, fmt.Sprintf("writing %s cancelled: %v", post.Path, err))
		return res
	}

	if err := fsutil.WriteFile(post.Path, data); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = errs.Filesystem(err, fmt.Sprintf("writing %s: %v", post.Path, err))
		logger.Warn("write failed", "path", post.Path, "error", err)
		return res
	}

	res.Outcome = OutcomeWritten
	logger.Debug("post written", "path", post.Path)
	return res
}

func (w *Writer) skipExisting() bool {
	return w.opts.SkipExisting && !w.opts.Force
}

// RecallID returns the id stored in the frontmatter of the file at path.
// key is the frontmatter name the id is written under.
func RecallID(path, key string) (string, bool) {
	doc, _, err := document.Read(path)
	if err != nil || doc == nil {
		return "", false
	}
	id := doc.String(key)
	return id, id != ""
}
