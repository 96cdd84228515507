package main

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProcessingStatus represents the outcome status of processing a post
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "success"
	StatusSkipped ProcessingStatus = "skipped"
	StatusDryRun  ProcessingStatus = "dry-run"
	StatusError   ProcessingStatus = "error"
)

// Stage names the pipeline states, in order.
type Stage string

const (
	StageConfigured           Stage = "configured"
	StageParsed               Stage = "parsed"
	StageImagesCollected      Stage = "images_collected"
	StageImagesMerged         Stage = "images_merged"
	StageFrontmatterPopulated Stage = "frontmatter_populated"
	StageConverted            Stage = "converted"
	StageImagesDownloaded     Stage = "images_downloaded"
	StageWritten              Stage = "written"
	StageReported             Stage = "reported"
)

// ProcessingResult tracks the outcome of processing each post
type ProcessingResult struct {
	PostID   string
	Title    string
	Status   ProcessingStatus
	Filename string
	Error    error
}

// Report is the summary of one run.
type Report struct {
	Results []ProcessingResult

	Processed int
	Skipped   int
	Failed    int

	ImagesDownloaded int
	ImagesFailed     int
	ImagesSkipped    int

	CategoriesDropped int
	Collisions        int

	// Errors holds the messages of failed image downloads followed by those
	// of failed posts in parse order.
	Errors   []string
	Duration time.Duration
}

// Succeeded reports whether at least one post came through, or there was
// nothing to do.
func (r *Report) Succeeded() bool {
	return len(r.Results) == 0 || r.Processed > 0 || r.Skipped > 0
}

func (r *Report) add(res ProcessingResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusSuccess, StatusDryRun:
		r.Processed++
	case StatusSkipped:
		r.Skipped++
	case StatusError:
		r.Failed++
		if res.Error != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("post %s (%s): %v", res.PostID, res.Title, res.Error))
		}
	}
}

// Print writes the human readable summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "\nPosts: %d processed, %d skipped, %d failed\n", r.Processed, r.Skipped, r.Failed)
	fmt.Fprintf(w, "Images: %d downloaded, %d skipped, %d failed\n", r.ImagesDownloaded, r.ImagesSkipped, r.ImagesFailed)
	if r.CategoriesDropped > 0 {
		fmt.Fprintf(w, "Categories dropped: %d\n", r.CategoriesDropped)
	}
	if r.Collisions > 0 {
		fmt.Fprintf(w, "Path collisions: %d\n", r.Collisions)
	}
	fmt.Fprintf(w, "Duration: %s\n", r.Duration.Round(time.Millisecond))

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", strings.ReplaceAll(msg, "\n", "; "))
		}
	}
}
