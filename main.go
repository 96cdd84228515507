package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
	"github.com/aequinox/gesundes-leben/wp2md/internal/frontmatter"
	"github.com/aequinox/gesundes-leben/wp2md/internal/logging"
	"github.com/aequinox/gesundes-leben/wp2md/internal/writer"
	"github.com/aequinox/gesundes-leben/wp2md/internal/wxr"
)

var (
	settingsPath string
	verboseMode  bool
	quietMode    bool
)

var rootCmd = &cobra.Command{
	Use:           "wp2md",
	Short:         "Convert a WordPress export into Markdown posts",
	Long:          `Reads a WordPress WXR export and writes one Markdown or MDX file per post, with frontmatter and local copies of its images.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert [export.xml]",
	Short: "Convert the export into Markdown files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, provider, err := setup(cmd, args)
		if err != nil {
			return err
		}

		processor, err := NewPostProcessor(cfg, provider)
		if err != nil {
			return err
		}

		var bar *progressbar.ProgressBar
		if !quietMode {
			processor.SetProgress(func(done, total int) {
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionSetDescription("writing posts"),
						progressbar.OptionShowCount(),
						progressbar.OptionClearOnFinish(),
					)
				}
				_ = bar.Set(done)
			})
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, runErr := processor.Run(ctx)
		if bar != nil {
			_ = bar.Finish()
		}
		if report != nil {
			report.Print(cmd.OutOrStdout())
		}

		if cfg.MetricsFile != "" {
			if err := processor.Metrics().WriteFile(cfg.MetricsFile); err != nil {
				logging.ModuleLogger(provider, logging.PipelineModule).Warn("metrics file not written", "path", cfg.MetricsFile, "error", err)
			}
		}

		if runErr != nil {
			return runErr
		}
		if !report.Succeeded() {
			return errors.New("no post could be converted")
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [export.xml]",
	Short: "Parse the export and summarise its contents",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, provider, err := setup(cmd, args)
		if err != nil {
			return err
		}
		export, err := wxr.NewParser(logging.ModuleLogger(provider, logging.ParserModule)).Parse(cmd.Context(), cfg.Input)
		if err != nil {
			return err
		}

		s := export.Summary
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Title:       %s\n", s.Title)
		fmt.Fprintf(out, "Link:        %s\n", s.Link)
		fmt.Fprintf(out, "Language:    %s\n", s.Language)
		fmt.Fprintf(out, "WXR version: %s\n", s.WXRVersion)
		fmt.Fprintf(out, "Base URL:    %s\n", s.BaseURL)
		fmt.Fprintf(out, "Items:       %d\n", s.Items)

		fmt.Fprintf(out, "\nAuthors:\n")
		for _, author := range s.Authors {
			slug, ok := cfg.Author(author.Login)
			if !ok {
				slug = "(unmapped)"
			}
			fmt.Fprintf(out, "  %-20s %-30s -> %s\n", author.Login, author.DisplayName, slug)
		}

		printCounts(out, "Types", s.TypeCounts)
		printCounts(out, "Statuses", s.StatusCounts)

		posts := export.Posts(selection(cfg))
		fmt.Fprintf(out, "\nSelected posts: %d, attachments: %d\n", len(posts), len(export.Attachments()))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list [export.xml]",
	Short: "List the selected posts with their target paths",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, provider, err := setup(cmd, args)
		if err != nil {
			return err
		}
		export, err := wxr.NewParser(logging.ModuleLogger(provider, logging.ParserModule)).Parse(cmd.Context(), cfg.Input)
		if err != nil {
			return err
		}

		layout := writer.LayoutFrom(cfg)
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tTITLE\tPATH")
		for _, post := range export.Posts(selection(cfg)) {
			post.Slug = frontmatter.PostSlug(post.Title, post.Name, post.ID, cfg.SlugSeparator)
			date := "-"
			if t, err := frontmatter.ParseDate(post.PubDate); err == nil {
				post.Published = t
				if loc := cfg.Location(); loc != nil {
					t = t.In(loc)
				}
				date = t.Format("2006-01-02")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", post.ID, date, post.Status, post.Title, layout.Path(post))
		}
		return tw.Flush()
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories [export.xml]",
	Short: "Show how export categories map onto the vocabulary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, provider, err := setup(cmd, args)
		if err != nil {
			return err
		}
		export, err := wxr.NewParser(logging.ModuleLogger(provider, logging.ParserModule)).Parse(cmd.Context(), cfg.Input)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tPOSTS\tMAPPED TO")
		for _, usage := range export.CategoryUsage(selection(cfg)) {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", usage.Name, usage.Count, mappedCategory(cfg, usage.Name))
		}
		return tw.Flush()
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settingsPath
		if path == "" {
			path = getConfigPath("settings.yaml")
		}
		created, err := ensureConfigExists(path)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "config", "c", "", "settings file (default "+getConfigPath("settings.yaml")+")")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "only log errors and hide the progress bar")
	bindLogFlags(rootCmd.PersistentFlags())

	bindIOFlags(convertCmd.Flags())
	bindConvertFlags(convertCmd.Flags())

	// The read-only commands share the selection and layout flags with convert.
	for _, cmd := range []*cobra.Command{validateCmd, listCmd, categoriesCmd} {
		bindIOFlags(cmd.Flags())
	}
	bindConvertFlags(listCmd.Flags())

	rootCmd.AddCommand(convertCmd, validateCmd, listCmd, categoriesCmd, initCmd)
}

// setup resolves the configuration for cmd and builds the logging provider.
// A positional argument names the input file.
func setup(cmd *cobra.Command, args []string) (*config.Config, logging.Provider, error) {
	if len(args) > 0 {
		if err := cmd.Flags().Set("input", args[0]); err != nil {
			return nil, nil, err
		}
	}

	overrides := &ConfigOverrides{Verbose: verboseMode, Quiet: quietMode}
	if settingsPath != "" {
		overrides.SettingsPath = &settingsPath
	}

	cfg, err := loadConfig(cmd.Flags(), overrides)
	if err != nil {
		return nil, nil, err
	}

	provider, err := logging.NewGoLoggerProvider(logging.GoLoggerConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return nil, nil, err
	}
	logging.ModuleLogger(provider, "").Debug("effective configuration", "config", describeConfig(cfg))
	return cfg, provider, nil
}

func selection(cfg *config.Config) wxr.Selection {
	return wxr.Selection{
		IncludeOtherTypes: cfg.IncludeOtherTypes,
		IncludeDrafts:     cfg.IncludeDrafts,
	}
}

func mappedCategory(cfg *config.Config, name string) string {
	if cfg.IsFilteredCategory(name) {
		return "(filtered)"
	}
	kept, _ := frontmatter.ResolveCategories(cfg, []string{name})
	if len(kept) == 0 {
		return "(dropped)"
	}
	return kept[0]
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-20s %d\n", k, counts[k])
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
