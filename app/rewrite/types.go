package rewrite

// Rewrite engine types

// Attrs holds the attribute annotations of a single feed item, keyed by
// lower-cased attribute name. Duplicate names are last-wins. Lookup keeps
// "attribute missing" distinguishable from "attribute present but empty".
type Attrs map[string]string

func (a Attrs) Lookup(name string) (string, bool) {
	value, ok := a[name]
	return value, ok
}

// Get returns the attribute value, or "" when the attribute is absent.
func (a Attrs) Get(name string) string {
	return a[name]
}

// Categories is the set of category codes attached to a single feed item,
// collected from both newznab:attr annotations and plain <category> elements.
type Categories map[string]struct{}

func (c Categories) Add(code string) {
	c[code] = struct{}{}
}

func (c Categories) Has(code string) bool {
	_, ok := c[code]
	return ok
}

func (c Categories) HasAny(set map[string]struct{}) bool {
	for code := range c {
		if _, ok := set[code]; ok {
			return true
		}
	}
	return false
}

// Options are the immutable rewrite toggles, fixed at construction time.
type Options struct {
	Music      bool
	Books      bool
	Audiobooks bool
	BestEffort bool
	DebugAttrs bool
}

// Outcome is the result of one engine run. Passthrough outcomes carry the
// original input bytes untouched, with Reason recorded for logging.
type Outcome struct {
	Body        []byte
	Items       int
	Rewritten   int
	Passthrough bool
	Reason      string
}
