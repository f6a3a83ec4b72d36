package rewrite

import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

// detector matches quality and format tokens as whole words,
// case-insensitively, using precompiled per-token expressions.
type detector struct {
	qualityOrder []string
	qualityRe    map[string]*regexp.Regexp
	formatOrder  []string
	formatRe     map[string]*regexp.Regexp
	hints        map[string]string
	hintPriority []string
}

func newDetector(rules Rules) *detector {
	// Longest first, so "DSD" never matches inside "DSD64".
	qualityOrder := slices.Clone(rules.AudioQualities)
	sort.SliceStable(qualityOrder, func(i, j int) bool {
		return len(qualityOrder[i]) > len(qualityOrder[j])
	})

	return &detector{
		qualityOrder: qualityOrder,
		qualityRe:    compileTokens(qualityOrder),
		formatOrder:  slices.Clone(rules.BookFormats),
		formatRe:     compileTokens(rules.BookFormats),
		hints:        rules.CategoryQualityHints,
		hintPriority: rules.CategoryQualityPriority,
	}
}

func compileTokens(tokens []string) map[string]*regexp.Regexp {
	compiled := make(map[string]*regexp.Regexp, len(tokens))
	for _, token := range tokens {
		compiled[token] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(token) + `\b`)
	}
	return compiled
}

func (d *detector) findAudioQuality(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, token := range d.qualityOrder {
		if d.qualityRe[token].MatchString(text) {
			return strings.ToUpper(token), true
		}
	}
	return "", false
}

// DetectQuality resolves an audio quality in strict precedence: the audio
// attribute, then the original title, then category hints (priority codes
// first, then any other category carrying a hint).
func (d *detector) DetectQuality(attrs Attrs, originalTitle string, cats Categories) (string, bool) {
	if quality, ok := d.findAudioQuality(attrs.Get("audio")); ok {
		return quality, true
	}

	if quality, ok := d.findAudioQuality(originalTitle); ok {
		return quality, true
	}

	for _, code := range d.hintPriority {
		if cats.Has(code) {
			if hint, ok := d.hints[code]; ok {
				return hint, true
			}
		}
	}

	for code := range cats {
		if hint, ok := d.hints[code]; ok {
			return hint, true
		}
	}

	return "", false
}

// DetectBookFormat scans the original title only. First hit in the
// documented BookFormats order wins.
func (d *detector) DetectBookFormat(originalTitle string) (string, bool) {
	if originalTitle == "" {
		return "", false
	}
	for _, token := range d.formatOrder {
		if d.formatRe[token].MatchString(originalTitle) {
			return strings.ToUpper(token), true
		}
	}
	return "", false
}
