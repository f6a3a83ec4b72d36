package rewrite

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
)

const newznabNS = "http://www.newznab.com/DTD/2010/feeds/attributes/"

// Attribute name under which the pre-rewrite title is preserved when
// debug annotations are enabled.
const originalTitleAttr = "original_title"

// Engine rewrites item titles in a newznab XML response. It operates only on
// data local to a single response and never fails past its boundary: any
// document it cannot confidently rewrite is passed through byte-identical.
type Engine struct {
	opts     Options
	rewriter *Rewriter
}

func NewEngine(opts Options, rules Rules) *Engine {
	return &Engine{
		opts:     opts,
		rewriter: NewRewriter(opts, rules),
	}
}

func passthrough(data []byte, reason string) Outcome {
	return Outcome{Body: data, Passthrough: true, Reason: reason}
}

func (e *Engine) Run(data []byte) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Rewrite engine failure, returning original response", "panic", rec)
			out = passthrough(data, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	doc := etree.NewDocument()
	// CDATA sections (common in description elements) must survive
	// re-serialization untouched.
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(data); err != nil {
		return passthrough(data, fmt.Sprintf("not well-formed XML: %v", err))
	}

	channel := doc.FindElement("//channel")
	if channel == nil {
		return passthrough(data, "no channel element")
	}

	items := channel.SelectElements("item")
	if len(items) == 0 {
		return passthrough(data, "no items")
	}

	rewritten := 0
	for _, item := range items {
		if e.rewriteItem(item) {
			rewritten++
		}
	}

	if rewritten == 0 {
		// Nothing changed; hand back the exact original bytes.
		return passthrough(data, "no rewritable items")
	}

	body, err := doc.WriteToBytes()
	if err != nil {
		return passthrough(data, fmt.Sprintf("serialization failed: %v", err))
	}

	slog.Info("Rewrote titles in response", "rewritten", rewritten, "items", len(items))

	return Outcome{Body: body, Items: len(items), Rewritten: rewritten}
}

// rewriteItem mutates at most the item's title text plus one optional debug
// annotation. A failure on one item must not abort the rest of the feed.
func (e *Engine) rewriteItem(item *etree.Element) (rewrote bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Item rewrite failure, leaving item untouched", "panic", rec)
			rewrote = false
		}
	}()

	titleEl := item.SelectElement("title")
	if titleEl == nil || titleEl.Text() == "" {
		return false
	}
	originalTitle := titleEl.Text()

	attrs, attrPrefix := extractAttrs(item)
	if len(attrs) == 0 {
		slog.Debug("No attribute annotations on item", "title", originalTitle)
		return false
	}
	cats := itemCategories(item)

	var newTitle string
	var usable bool
	var mediaType string

	// Audiobooks are a subset of the audio range, so check them first.
	switch {
	case e.opts.Audiobooks && cats.HasAny(audiobookCategories):
		newTitle, usable = e.rewriter.BuildAudiobookTitle(attrs, originalTitle)
		mediaType = "audiobook"
	case e.opts.Books && cats.HasAny(bookCategories):
		newTitle, usable = e.rewriter.BuildBookTitle(attrs, originalTitle)
		mediaType = "book"
	case e.opts.Music && cats.HasAny(audioCategories):
		newTitle, usable = e.rewriter.BuildMusicTitle(attrs, originalTitle, cats)
		mediaType = "music"
	default:
		slog.Debug("Categories not matched for rewrite", "title", originalTitle)
		return false
	}

	if !usable || newTitle == "" || newTitle == originalTitle {
		slog.Debug("No rewrite needed or possible", "title", originalTitle)
		return false
	}

	titleEl.SetText(newTitle)
	slog.Info("Title rewritten", "type", mediaType, "from", originalTitle, "to", newTitle)

	if e.opts.DebugAttrs {
		tag := "newznab:attr"
		if attrPrefix != "" {
			tag = attrPrefix + ":attr"
		}
		debugAttr := item.CreateElement(tag)
		debugAttr.CreateAttr("name", originalTitleAttr)
		debugAttr.CreateAttr("value", originalTitle)
	}

	return true
}

// extractAttrs collects the item's newznab:attr name/value pairs, plus the
// namespace prefix the document uses so debug annotations can reuse it.
func extractAttrs(item *etree.Element) (Attrs, string) {
	attrs := Attrs{}
	prefix := ""

	for _, child := range item.ChildElements() {
		if child.Tag != "attr" || child.NamespaceURI() != newznabNS {
			continue
		}
		prefix = child.Space

		name := strings.ToLower(child.SelectAttrValue("name", ""))
		value := strings.TrimSpace(child.SelectAttrValue("value", ""))
		if name != "" && value != "" {
			attrs[name] = value
		}
	}

	return attrs, prefix
}

func itemCategories(item *etree.Element) Categories {
	cats := Categories{}

	for _, child := range item.ChildElements() {
		switch {
		case child.Tag == "attr" && child.NamespaceURI() == newznabNS:
			if strings.EqualFold(child.SelectAttrValue("name", ""), "category") {
				if value := strings.TrimSpace(child.SelectAttrValue("value", "")); value != "" {
					cats.Add(value)
				}
			}
		case child.Tag == "category":
			if value := strings.TrimSpace(child.Text()); value != "" {
				cats.Add(value)
			}
		}
	}

	return cats
}
