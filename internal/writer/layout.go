package writer

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

// Layout computes where a post is written.
type Layout struct {
	Output       string
	Collection   string
	Extension    string
	YearFolders  bool
	MonthFolders bool
	PostFolders  bool
	PrefixDate   bool
	Location     *time.Location
}

// LayoutFrom builds the layout described by cfg.
func LayoutFrom(cfg *config.Config) Layout {
	return Layout{
		Output:       cfg.Output,
		Collection:   cfg.Collection,
		Extension:    cfg.FileExtension,
		YearFolders:  cfg.YearFolders,
		MonthFolders: cfg.MonthFolders,
		PostFolders:  cfg.PostFolders,
		PrefixDate:   cfg.PrefixDate,
		Location:     cfg.Location(),
	}
}

// Path returns
//
//	<output>/[<collection>/][<yyyy>/][<MM>/][<[date-]slug>/]index.<ext>
//
// with post folders, else <output>/.../<[date-]slug>.<ext>. Date parts are
// left out for posts without a publication time and use the exported offset
// unless a Location is set.
func (l Layout) Path(post *models.Post) string {
	ext := strings.TrimPrefix(l.Extension, ".")
	if ext == "" {
		ext = "md"
	}

	parts := []string{l.Output}
	if c := strings.Trim(l.Collection, "/"); c != "" {
		parts = append(parts, c)
	}

	published := post.Published
	dated := !published.IsZero()
	if dated && l.Location != nil {
		published = published.In(l.Location)
	}

	if dated && l.YearFolders {
		parts = append(parts, published.Format("2006"))
		if l.MonthFolders {
			parts = append(parts, published.Format("01"))
		}
	}

	name := post.Slug
	if name == "" {
		name = "post-" + post.ID
	}
	if dated && l.PrefixDate {
		name = published.Format("2006-01-02") + "-" + name
	}

	if l.PostFolders {
		parts = append(parts, name, "index."+ext)
	} else {
		parts = append(parts, name+"."+ext)
	}
	return filepath.Join(parts...)
}
