// processor.go
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
	"github.com/aequinox/gesundes-leben/wp2md/internal/convert"
	"github.com/aequinox/gesundes-leben/wp2md/internal/frontmatter"
	"github.com/aequinox/gesundes-leben/wp2md/internal/images"
	"github.com/aequinox/gesundes-leben/wp2md/internal/logging"
	"github.com/aequinox/gesundes-leben/wp2md/internal/metrics"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
	"github.com/aequinox/gesundes-leben/wp2md/internal/writer"
	"github.com/aequinox/gesundes-leben/wp2md/internal/wxr"
)

// PostProcessor runs the conversion pipeline
type PostProcessor struct {
	cfg       *config.Config
	provider  logging.Provider
	logger    logging.Logger
	parser    *wxr.Parser
	converter *convert.Converter
	populator *frontmatter.Populator
	getter    images.Getter
	writer    *writer.Writer
	layout    writer.Layout
	metrics   *metrics.Recorder
	progress  func(done, total int)
	stage     Stage
}

// NewPostProcessor wires every stage from cfg. cfg must be validated.
func NewPostProcessor(cfg *config.Config, provider logging.Provider) (*PostProcessor, error) {
	opts := convert.Options{
		MDX:                 cfg.FileExtension == "mdx",
		BlockquoteComponent: cfg.BlockquoteComponent,
	}
	// Descriptions are taken from Markdown without image position marks.
	describer := convert.New(opts, logging.ModuleLogger(provider, logging.ConverterModule))
	opts.ImagePositions = cfg.UsesImageComponent()
	converter := convert.New(opts, logging.ModuleLogger(provider, logging.ConverterModule))

	populator, err := frontmatter.NewPopulator(cfg, frontmatter.DefaultRegistry(), &frontmatter.Env{
		ToMarkdown: describer.Convert,
	}, logging.ModuleLogger(provider, logging.FieldsModule))
	if err != nil {
		return nil, err
	}

	return &PostProcessor{
		cfg:       cfg,
		provider:  provider,
		logger:    logging.ModuleLogger(provider, logging.PipelineModule),
		parser:    wxr.NewParser(logging.ModuleLogger(provider, logging.ParserModule)),
		converter: converter,
		populator: populator,
		getter: images.NewFetcher(images.FetcherOptions{
			Timeout:   cfg.Timeout,
			StrictSSL: cfg.StrictSSL,
			Optimize:  cfg.OptimizeImages,
			MaxWidth:  cfg.MaxImageWidth,
			Quality:   cfg.ImageQuality,
		}),
		writer: writer.New(writer.Options{
			SkipExisting: cfg.SkipExisting,
			Force:        cfg.Force,
			DryRun:       cfg.DryRun,
			Delay:        cfg.FileWriteDelay(),
		}, logging.ModuleLogger(provider, logging.WriterModule)),
		layout:  writer.LayoutFrom(cfg),
		metrics: metrics.New(),
		stage:   StageConfigured,
	}, nil
}

// SetFetcher replaces the image fetcher
func (pp *PostProcessor) SetFetcher(getter images.Getter) {
	pp.getter = getter
}

// SetProgress registers a callback invoked after each post is written
func (pp *PostProcessor) SetProgress(fn func(done, total int)) {
	pp.progress = fn
}

// Metrics returns the run counters
func (pp *PostProcessor) Metrics() *metrics.Recorder {
	return pp.metrics
}

// Stage returns the last stage the pipeline reached
func (pp *PostProcessor) Stage() Stage {
	return pp.stage
}

// Run converts the export. The returned error is fatal (configuration, parse,
// unwritable output or cancellation); per-post failures are only recorded in
// the report.
func (pp *PostProcessor) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{}

	if err := pp.writer.CheckOutput(pp.cfg.Output); err != nil {
		return nil, err
	}

	var export *wxr.Export
	err := pp.timed(StageParsed, func() error {
		var err error
		export, err = pp.parser.Parse(ctx, pp.cfg.Input)
		return err
	})
	if err != nil {
		return nil, err
	}

	posts := export.Posts(wxr.Selection{
		IncludeOtherTypes: pp.cfg.IncludeOtherTypes,
		IncludeDrafts:     pp.cfg.IncludeDrafts,
	})
	pp.logger.Info("export parsed", "posts", len(posts), "attachments", len(export.Attachments()))

	run := newRunState(posts)

	var found []*models.Image
	_ = pp.timed(StageImagesCollected, func() error {
		base := images.ResolveBase(pp.cfg.ImageBaseURL, export.BaseURL())
		collector := images.NewCollector(base, logging.ModuleLogger(pp.provider, logging.ImagesModule))
		found = append(collector.Attached(export.Attachments()), collector.Scraped(posts)...)
		return nil
	})

	_ = pp.timed(StageImagesMerged, func() error {
		merger := images.NewMerger(export, images.SavePolicy{
			Attached: pp.cfg.SaveAttachedImages,
			Scraped:  pp.cfg.SaveScrapedImages,
		}, logging.ModuleLogger(pp.provider, logging.ImagesModule))
		stats := merger.Merge(posts, found)
		pp.logger.Debug("images merged", "attached", stats.Attached, "discarded", stats.Discarded, "covers", stats.Covers)
		return nil
	})

	_ = pp.timed(StageFrontmatterPopulated, func() error {
		for i, post := range posts {
			if err := pp.populate(post); err != nil {
				run.fail(i, err)
				logging.WithPost(pp.logger, post.ID, post.Title).Warn("frontmatter failed, post skipped", "error", err)
			}
		}
		return nil
	})

	_ = pp.timed(StageConverted, func() error {
		for _, i := range run.live() {
			post := posts[i]
			markdown, err := pp.converter.Convert(post.Content)
			if err != nil {
				run.fail(i, err)
				logging.WithPost(pp.logger, post.ID, post.Title).Warn("conversion failed, post skipped", "error", err)
				continue
			}
			post.Markdown = markdown
		}
		return nil
	})

	_ = pp.timed(StageImagesDownloaded, func() error {
		live := run.livePosts()
		downloader := images.NewDownloader(pp.getter, images.DownloaderOptions{
			Concurrency: pp.cfg.Concurrency,
			Delay:       pp.cfg.ImageRequestDelay(),
			Force:       pp.cfg.Force,
			DryRun:      pp.cfg.DryRun,
		}, logging.ModuleLogger(pp.provider, logging.ImagesModule))
		stats := downloader.Download(ctx, live)

		report.ImagesDownloaded = stats.Downloaded
		report.ImagesFailed = stats.Failed
		report.ImagesSkipped = stats.Skipped
		for _, err := range stats.Errors {
			report.Errors = append(report.Errors, err.Error())
		}

		for _, post := range live {
			if images.CoverFailed(post) {
				if err := pp.populator.Refresh(post, "heroImage"); err != nil {
					pp.logger.Warn("heroImage refresh failed", "post_id", post.ID, "error", err)
				}
			}
			images.RewriteReferences(post)
			if pp.cfg.UsesImageComponent() {
				n := images.ImageComponents(post, pp.cfg.ImageComponent)
				logging.WithPost(pp.logger, post.ID, post.Title).Debug("image components written", "count", n)
			}
		}
		return nil
	})

	_ = pp.timed(StageWritten, func() error {
		live := run.live()
		total := len(live)
		done := 0
		for _, i := range live {
			post := posts[i]
			if ctx.Err() != nil {
				run.fail(i, fmt.Errorf("not written: %w", ctx.Err()))
				continue
			}
			res := pp.writer.Write(ctx, post)
			if res.Collision {
				report.Collisions++
				pp.metrics.Collision()
			}
			run.record(i, res)
			done++
			if pp.progress != nil {
				pp.progress(done, total)
			}
		}
		return nil
	})

	for _, res := range run.results {
		report.add(res)
		pp.metrics.Post(string(res.Status))
	}
	report.CategoriesDropped = pp.populator.DroppedCategories()
	report.Duration = time.Since(started)

	pp.metrics.Images("downloaded", report.ImagesDownloaded)
	pp.metrics.Images("failed", report.ImagesFailed)
	pp.metrics.Images("skipped", report.ImagesSkipped)
	pp.metrics.DroppedCategories(report.CategoriesDropped)
	pp.metrics.Duration(report.Duration)
	pp.stage = StageReported

	pp.logger.Info("conversion finished",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration.String(),
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// populate derives the frontmatter and target path of post, keeping the id
// of a file an earlier run wrote there.
func (pp *PostProcessor) populate(post *models.Post) error {
	if err := pp.populator.Populate(post); err != nil {
		return err
	}
	post.Path = pp.layout.Path(post)

	if key, ok := pp.populator.Key("id"); ok {
		if id, found := writer.RecallID(post.Path, key); found {
			pp.populator.PreserveID(post, id)
		}
	}
	return nil
}

func (pp *PostProcessor) timed(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	pp.metrics.Stage(string(stage), time.Since(start))
	if err == nil {
		pp.stage = stage
	}
	return err
}

// runState keeps one result per post in parse order.
type runState struct {
	posts   []*models.Post
	failed  []bool
	results []ProcessingResult
}

func newRunState(posts []*models.Post) *runState {
	s := &runState{
		posts:   posts,
		failed:  make([]bool, len(posts)),
		results: make([]ProcessingResult, len(posts)),
	}
	for i, post := range posts {
		s.results[i] = ProcessingResult{PostID: post.ID, Title: post.Title}
	}
	return s
}

// live returns the indexes of posts that have not failed, in parse order.
func (s *runState) live() []int {
	out := make([]int, 0, len(s.posts))
	for i := range s.posts {
		if !s.failed[i] {
			out = append(out, i)
		}
	}
	return out
}

func (s *runState) livePosts() []*models.Post {
	var out []*models.Post
	for i, post := range s.posts {
		if !s.failed[i] {
			out = append(out, post)
		}
	}
	return out
}

func (s *runState) fail(i int, err error) {
	s.failed[i] = true
	s.results[i].Status = StatusError
	s.results[i].Error = err
}

func (s *runState) record(i int, res writer.Result) {
	s.results[i].Filename = res.Path
	switch res.Outcome {
	case writer.OutcomeWritten:
		s.results[i].Status = StatusSuccess
	case writer.OutcomeDryRun:
		s.results[i].Status = StatusDryRun
	case writer.OutcomeSkipped:
		s.results[i].Status = StatusSkipped
	default:
		err := res.Err
		if err == nil {
			err = errors.New("write failed")
		}
		s.fail(i, err)
	}
}
