package capability

import "time"

// Attribute keys understood by the built-in providers. Providers
// ignore keys they do not use.
const (
	AttrURL        = "url"
	AttrDest       = "dest"
	AttrBranch     = "branch"
	AttrMinVersion = "min_version"
	AttrCask       = "cask"
)

// Item is one unit of desired state: a package name, a font, a
// repository. Attrs carry provider-specific detail.
type Item struct {
	Name  string
	Attrs map[string]string
}

// NewItem builds an item without attributes.
func NewItem(name string) Item {
	return Item{Name: name}
}

// Attr returns the named attribute or "".
func (i Item) Attr(key string) string {
	if i.Attrs == nil {
		return ""
	}
	return i.Attrs[key]
}

// WithAttr returns a copy of the item with the attribute set.
func (i Item) WithAttr(key, value string) Item {
	attrs := make(map[string]string, len(i.Attrs)+1)
	for k, v := range i.Attrs {
		attrs[k] = v
	}
	attrs[key] = value
	i.Attrs = attrs
	return i
}

// ItemResult records what happened to one item.
type ItemResult struct {
	Item     Item
	Outcome  Outcome
	Status   Status
	Err      error
	Duration time.Duration
}

// Failed reports whether applying the item failed.
func (r ItemResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}
