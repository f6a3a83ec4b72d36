package rewrite

import (
	"cmp"
	"regexp"
	"strings"
)

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Rewriter builds replacement titles from item attributes. All methods are
// pure; the second return value is false when no usable title can be built.
type Rewriter struct {
	opts Options
	det  *detector
}

func NewRewriter(opts Options, rules Rules) *Rewriter {
	return &Rewriter{
		opts: opts,
		det:  newDetector(rules),
	}
}

func (r *Rewriter) resolveYear(attrs Attrs, originalTitle string) string {
	if year := attrs.Get("year"); year != "" {
		return year
	}
	return yearRe.FindString(originalTitle)
}

// BuildMusicTitle composes a Lidarr-compatible title, roughly
// {Artist}-{Album}-{Track}-{Quality}-{Year}. Artist and album must not carry
// bare hyphens that would be misread as field separators.
func (r *Rewriter) BuildMusicTitle(attrs Attrs, originalTitle string, cats Categories) (string, bool) {
	artist := attrs.Get("artist")
	album := attrs.Get("album")

	if artist == "" && album == "" {
		if !r.opts.BestEffort {
			return "", false
		}
		// Nothing to build from even in best-effort mode; at least one
		// identifying field is mandatory.
		return "", false
	}

	artist = SafeHyphenField(SanitizeField(artist))
	album = SafeHyphenField(SanitizeField(album))

	track := attrs.Get("track")
	if track != "" {
		track = SanitizeField(SafeHyphenField(track))
	}

	quality, _ := r.det.DetectQuality(attrs, originalTitle, cats)
	year := r.resolveYear(attrs, originalTitle)

	parts := []string{artist}
	for _, part := range []string{album, track, quality, year} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, "-"), true
}

// BuildBookTitle composes a Readarr-compatible title, roughly
// {Author} - {Title} ({Year}) {Format}.
func (r *Rewriter) BuildBookTitle(attrs Attrs, originalTitle string) (string, bool) {
	author := attrs.Get("author")
	bookTitle := cmp.Or(attrs.Get("booktitle"), attrs.Get("title"), attrs.Get("album"))

	if author == "" && bookTitle == "" {
		if !r.opts.BestEffort {
			return "", false
		}
		return "", false
	}

	author = SanitizeField(author)
	bookTitle = SanitizeField(bookTitle)

	year := r.resolveYear(attrs, originalTitle)
	format, hasFormat := r.det.DetectBookFormat(originalTitle)

	var title string
	switch {
	case author != "" && bookTitle != "":
		title = author + " - " + bookTitle
	case author != "":
		title = author
	default:
		title = bookTitle
	}

	if year != "" {
		title += " (" + year + ")"
	}
	if hasFormat {
		title += " " + format
	}

	return title, true
}

// BuildAudiobookTitle composes {Author} - {Title} ({Year}) with the artist
// attribute standing in for a missing author. No format suffix.
func (r *Rewriter) BuildAudiobookTitle(attrs Attrs, originalTitle string) (string, bool) {
	author := cmp.Or(attrs.Get("author"), attrs.Get("artist"))
	title := cmp.Or(attrs.Get("booktitle"), attrs.Get("title"), attrs.Get("album"))

	if author == "" && title == "" {
		return "", false
	}

	author = SanitizeField(author)
	title = SanitizeField(title)

	if track := attrs.Get("track"); track != "" {
		track = SanitizeField(track)
		// Append the track only when it adds information.
		if !strings.Contains(strings.ToLower(title), strings.ToLower(track)) {
			if title == "" {
				title = track
			} else {
				title = title + " " + track
			}
		}
	}

	year := r.resolveYear(attrs, originalTitle)

	var result string
	switch {
	case author != "" && title != "":
		result = author + " - " + title
	case author != "":
		result = author
	default:
		result = title
	}

	if year != "" {
		result += " (" + year + ")"
	}

	return result, true
}
