package images

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aequinox/gesundes-leben/wp2md/internal/errs"
	"github.com/aequinox/gesundes-leben/wp2md/internal/fsutil"
	"github.com/aequinox/gesundes-leben/wp2md/internal/logging"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

// Getter fetches one image.
type Getter interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// DownloaderOptions configures a Downloader.
type DownloaderOptions struct {
	Concurrency int
	Delay       time.Duration
	Force       bool
	DryRun      bool
}

// Stats counts download outcomes, one per distinct destination file.
type Stats struct {
	Downloaded int
	Failed     int
	Skipped    int
	Errors     []error
}

// Downloader writes post images beside the post file.
type Downloader struct {
	getter  Getter
	limiter *rate.Limiter
	opts    DownloaderOptions
	logger  logging.Logger
}

// NewDownloader creates a downloader. Requests are spaced by opts.Delay; a
// zero delay leaves them unpaced.
func NewDownloader(getter Getter, opts DownloaderOptions, logger logging.Logger) *Downloader {
	if logger == nil {
		logger = logging.NoOp()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Downloader{
		getter:  getter,
		limiter: NewLimiter(opts.Delay),
		opts:    opts,
		logger:  logger,
	}
}

// NewLimiter returns a limiter admitting one event per delay.
func NewLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

type job struct {
	dest   string
	url    string
	images []*models.Image
}

// Download fetches every planned image of posts. Posts must have their
// destination path set. Failures are recorded on the descriptors and in the
// returned stats; they never abort the batch.
func (d *Downloader) Download(ctx context.Context, posts []*models.Post) Stats {
	jobs := d.plan(posts)
	var (
		stats Stats
		mu    sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome, err := d.run(gctx, j)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeDownloaded:
				stats.Downloaded++
			case outcomeSkipped:
				stats.Skipped++
			case outcomeFailed:
				stats.Failed++
				stats.Errors = append(stats.Errors, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return stats
}

func (d *Downloader) plan(posts []*models.Post) []*job {
	var jobs []*job
	byDest := map[string]*job{}
	for _, post := range posts {
		if post.Path == "" {
			continue
		}
		dir := filepath.Join(filepath.Dir(post.Path), "images")
		for _, img := range post.Images {
			if img.FileName == "" {
				continue
			}
			dest := filepath.Join(dir, img.FileName)
			if j, ok := byDest[dest]; ok {
				j.images = append(j.images, img)
				continue
			}
			j := &job{dest: dest, url: img.URL, images: []*models.Image{img}}
			byDest[dest] = j
			jobs = append(jobs, j)
		}
	}
	return jobs
}

type outcome int

const (
	outcomeDownloaded outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (d *Downloader) run(ctx context.Context, j *job) (outcome, error) {
	logger := logging.WithImage(d.logger, j.url)

	if d.opts.DryRun {
		d.mark(j, outcomeSkipped)
		logger.Debug("dry run, image not fetched", "dest", j.dest)
		return outcomeSkipped, nil
	}

	if !d.opts.Force {
		if fsutil.Exists(j.dest) {
			d.mark(j, outcomeSkipped)
			logger.Debug("image exists, skipping", "dest", j.dest)
			return outcomeSkipped, nil
		}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		d.mark(j, outcomeFailed)
		return outcomeFailed, errs.Network(err, fmt.Sprintf("download of %s cancelled: %v", j.url, err))
	}

	result, err := d.getter.Fetch(ctx, j.url)
	if err != nil {
		d.mark(j, outcomeFailed)
		logger.Warn("image download failed", "error", err)
		return outcomeFailed, errs.Network(err, fmt.Sprintf("downloading %s: %v", j.url, err))
	}

	if err := fsutil.WriteFile(j.dest, result.Data); err != nil {
		d.mark(j, outcomeFailed)
		logger.Warn("image write failed", "dest", j.dest, "error", err)
		return outcomeFailed, errs.Filesystem(err, fmt.Sprintf("writing %s: %v", j.dest, err))
	}

	d.mark(j, outcomeDownloaded)
	logger.Debug("image downloaded", "dest", j.dest, "bytes", len(result.Data), "optimized", result.Optimized)
	return outcomeDownloaded, nil
}

func (d *Downloader) mark(j *job, o outcome) {
	for _, img := range j.images {
		switch o {
		case outcomeDownloaded:
			img.Downloaded = true
			img.LocalPath = j.dest
		case outcomeSkipped:
			img.Skipped = true
			img.LocalPath = j.dest
		case outcomeFailed:
			img.Failed = true
		}
	}
}

// CoverFailed reports whether the cover of post could not be stored.
func CoverFailed(post *models.Post) bool {
	return post.Cover != nil && post.Cover.Failed
}
