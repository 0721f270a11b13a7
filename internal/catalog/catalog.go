package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/helioscale/sdkdex/internal/domain"
)

// Catalog is the read-only set of entries built once at startup. Iteration
// order is the input order and is stable for the process lifetime.
type Catalog struct {
	entries   []Entry
	byURI     map[string]int
	latest    map[string]int // product -> latest known major version
	signature string
}

// New validates the entries and builds a catalog. Duplicate ids or URIs
// reject the whole catalog.
func New(entries []Entry) (*Catalog, error) {
	byURI := make(map[string]int, len(entries))
	byID := make(map[string]struct{}, len(entries))
	latest := make(map[string]int)

	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
		}
		if _, dup := byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidCatalog, e.ID)
		}
		byID[e.ID] = struct{}{}
		if _, dup := byURI[e.URI]; dup {
			return nil, fmt.Errorf("%w: duplicate uri %q", domain.ErrInvalidCatalog, e.URI)
		}
		byURI[e.URI] = i

		if e.Product != "" && e.MajorVersion > 0 {
			p := strings.ToLower(e.Product)
			if e.MajorVersion > latest[p] {
				latest[p] = e.MajorVersion
			}
		}
	}

	return &Catalog{
		entries:   entries,
		byURI:     byURI,
		latest:    latest,
		signature: signature(entries),
	}, nil
}

// Entries returns the catalog entries in input order. Callers must not modify
// the returned slice.
func (c *Catalog) Entries() []Entry { return c.entries }

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// ByURI looks up an entry by its URI.
func (c *Catalog) ByURI(uri string) (Entry, bool) {
	i, ok := c.byURI[uri]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Lookup is the direct-read form of ByURI for callers that propagate errors.
func (c *Catalog) Lookup(uri string) (Entry, error) {
	e, ok := c.ByURI(uri)
	if !ok {
		return Entry{}, fmt.Errorf("entry %q: %w", uri, domain.ErrNotFound)
	}
	return e, nil
}

// LatestMajor returns the latest known major version for a product.
func (c *Catalog) LatestMajor(product string) (int, bool) {
	v, ok := c.latest[strings.ToLower(product)]
	return v, ok
}

// Products returns the lowercase names of all products with versioned entries.
func (c *Catalog) Products() []string {
	out := make([]string, 0, len(c.latest))
	for p := range c.latest {
		out = append(out, p)
	}
	return out
}

// Pinned returns the entries flagged as always visible, in catalog order.
func (c *Catalog) Pinned() []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Pinned {
			out = append(out, e)
		}
	}
	return out
}

// Signature is a deterministic hash over the full catalog content. It changes
// whenever any entry's identity, text, or tags change and feeds the vector
// index cache key.
func (c *Catalog) Signature() string { return c.signature }

func signature(entries []Entry) string {
	h := sha256.New()
	for _, e := range entries {
		for _, field := range []string{e.ID, e.URI, string(e.Type), e.Title, e.Summary, e.EmbedText} {
			h.Write([]byte(field))
			h.Write([]byte{0})
		}
		for _, t := range e.Tags {
			h.Write([]byte(t))
			h.Write([]byte{0})
		}
		h.Write([]byte{0xff})
	}
	return hex.EncodeToString(h.Sum(nil))
}
