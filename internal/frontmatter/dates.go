package frontmatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts tried in order: ISO 8601, RFC 2822, then the WordPress database
// format.
var (
	isoLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	rfc2822Layouts = []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
	}
	fallbackLayout = "2006-01-02 15:04:05"
)

// ParseDate parses a raw WordPress date. Dates without zone are UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("date data is missing")
	}
	for _, group := range [][]string{isoLayouts, rfc2822Layouts, {fallbackLayout}} {
		for _, layout := range group {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format %q", raw)
}

// DateFormat controls how dates are rendered.
type DateFormat struct {
	Custom      string
	IncludeTime bool
	Location    *time.Location
}

// Format renders t: the custom format wins, then an ISO datetime when time is
// included, else a bare date. A nil Location keeps the offset t was parsed
// with.
func (f DateFormat) Format(t time.Time) string {
	if f.Location != nil {
		t = t.In(f.Location)
	}
	switch {
	case strings.TrimSpace(f.Custom) != "":
		return FormatTokens(t, f.Custom)
	case f.IncludeTime:
		return t.Format("2006-01-02T15:04:05.000Z07:00")
	default:
		return t.Format("2006-01-02")
	}
}

// FormatTokens renders t with a Luxon style token pattern such as
// "yyyy-MM-dd'T'HH:mm". Text in single quotes is copied verbatim; unknown
// letters pass through unchanged.
func FormatTokens(t time.Time, pattern string) string {
	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]
		if r == '\'' {
			end := i + 1
			for end < len(runes) && runes[end] != '\'' {
				end++
			}
			b.WriteString(string(runes[i+1 : min(end, len(runes))]))
			i = end + 1
			continue
		}
		if !isTokenLetter(r) {
			b.WriteRune(r)
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] == r {
			j++
		}
		b.WriteString(renderToken(t, r, j-i))
		i = j
	}
	return b.String()
}

func isTokenLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func renderToken(t time.Time, letter rune, n int) string {
	pad := func(v, width int) string {
		s := strconv.Itoa(v)
		for len(s) < width {
			s = "0" + s
		}
		return s
	}
	hour12 := t.Hour() % 12
	if hour12 == 0 {
		hour12 = 12
	}

	switch letter {
	case 'y':
		if n == 2 {
			return pad(t.Year()%100, 2)
		}
		return pad(t.Year(), max(n, 4))
	case 'M', 'L':
		switch {
		case n >= 4:
			return t.Month().String()
		case n == 3:
			return t.Month().String()[:3]
		default:
			return pad(int(t.Month()), n)
		}
	case 'd':
		return pad(t.Day(), n)
	case 'E':
		if n >= 4 {
			return t.Weekday().String()
		}
		return t.Weekday().String()[:3]
	case 'H':
		return pad(t.Hour(), n)
	case 'h':
		return pad(hour12, n)
	case 'm':
		return pad(t.Minute(), n)
	case 's':
		return pad(t.Second(), n)
	case 'S':
		return pad(t.Nanosecond()/int(time.Millisecond), 3)[:min(n, 3)]
	case 'a':
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case 'Z':
		switch n {
		case 1:
			_, offset := t.Zone()
			sign := "+"
			if offset < 0 {
				sign = "-"
				offset = -offset
			}
			h, m := offset/3600, (offset%3600)/60
			if m == 0 {
				return sign + strconv.Itoa(h)
			}
			return fmt.Sprintf("%s%d:%02d", sign, h, m)
		case 2:
			return t.Format("-07:00")
		default:
			return t.Format("-0700")
		}
	case 'z':
		return t.Location().String()
	}
	return strings.Repeat(string(letter), n)
}
