package rewrite

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Category code sets per the newznab standard.
// https://inhies.github.io/Newznab-API/attributes/
var (
	audioCategories = toSet([]string{
		"3000", "3010", "3020", "3030", "3040", "3050", "3060",
	})

	audiobookCategories = toSet([]string{"3030"})

	bookCategories = toSet([]string{
		"7000", "7010", "7020", "7030", "7040", "7050", "7060",
		"7100", "7110", "7120", "7130",
		"8000", "8010", "8020",
	})
)

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

// Rules holds the detection vocabularies. Defaults cover what Lidarr and
// Readarr recognize; individual lists can be overridden via a YAML file.
type Rules struct {
	AudioQualities          []string          `yaml:"audio_qualities"`
	BookFormats             []string          `yaml:"book_formats"`
	CategoryQualityHints    map[string]string `yaml:"category_quality_hints"`
	CategoryQualityPriority []string          `yaml:"category_quality_priority"`
}

func DefaultRules() Rules {
	return Rules{
		// Quality keywords Lidarr recognizes
		AudioQualities: []string{
			"FLAC", "MP3", "AAC", "OGG", "ALAC", "WMA", "WAV", "AIFF",
			"OPUS", "DSD", "DSD64", "DSD128", "DSD256",
			"16BIT", "24BIT", "16-BIT", "24-BIT",
			"V0", "V2", "320", "256", "192", "128",
			"LOSSLESS", "LOSSY", "WEB", "CD", "VINYL",
		},
		// Formats Readarr recognizes. Slice order is the scan order, so when
		// a title mentions several formats the earliest entry here wins.
		BookFormats: []string{
			"EPUB", "MOBI", "AZW3", "AZW", "PDF", "CBR", "CBZ", "FB2",
			"LIT", "LRF", "PDB", "DJVU", "DOC", "DOCX", "RTF", "TXT",
		},
		CategoryQualityHints: map[string]string{
			"3010": "WEB",
			"3040": "FLAC",
		},
		// When multiple categories are present, prefer the more specific one
		CategoryQualityPriority: []string{"3040", "3010"},
	}
}

// LoadRules returns the default vocabularies, with any lists present in the
// YAML file at path replacing their defaults. An empty path means defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read rules file: %w", err)
	}

	var overrides Rules
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return rules, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	if len(overrides.AudioQualities) > 0 {
		rules.AudioQualities = overrides.AudioQualities
	}
	if len(overrides.BookFormats) > 0 {
		rules.BookFormats = overrides.BookFormats
	}
	if len(overrides.CategoryQualityHints) > 0 {
		rules.CategoryQualityHints = overrides.CategoryQualityHints
	}
	if len(overrides.CategoryQualityPriority) > 0 {
		rules.CategoryQualityPriority = overrides.CategoryQualityPriority
	}

	return rules, nil
}
