// Package catalog holds the immutable catalog of SDK documentation articles
// and code samples that the retrieval engine serves references into.
package catalog

import (
	"fmt"
	"strings"
)

// Type classifies a catalog entry. The set is closed.
type Type string

const (
	TypeDoc    Type = "doc"
	TypeSample Type = "sample"
	TypeIndex  Type = "index"
	TypePolicy Type = "policy"
)

// Valid reports whether t is a member of the closed type set.
func (t Type) Valid() bool {
	switch t {
	case TypeDoc, TypeSample, TypeIndex, TypePolicy:
		return true
	}
	return false
}

// Entry is one retrievable unit. Entries are built once during catalog
// construction and never mutated afterwards.
type Entry struct {
	ID           string   `json:"id"`
	URI          string   `json:"uri"`
	Type         Type     `json:"type"`
	Product      string   `json:"product,omitempty"`
	Edition      string   `json:"edition,omitempty"`
	Platform     string   `json:"platform,omitempty"`
	Version      string   `json:"version,omitempty"`
	MajorVersion int      `json:"major_version,omitempty"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary,omitempty"`
	EmbedText    string   `json:"embed_text,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	MIMEType     string   `json:"mime_type,omitempty"`
	Pinned       bool     `json:"pinned,omitempty"`
}

// HasTag reports whether the entry carries the given lowercase tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate checks the entry's structural invariants: non-empty id/uri, a
// closed-set type, and agreement between scope fields and the URI segments.
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entry has empty id")
	}
	if e.URI == "" {
		return fmt.Errorf("entry %q has empty uri", e.ID)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("entry %q has unknown type %q", e.ID, e.Type)
	}
	_, segments, err := ParseURI(e.URI)
	if err != nil {
		return fmt.Errorf("entry %q: %w", e.ID, err)
	}
	// The URI encodes scope positionally: product/edition/platform/version/...
	for i, want := range []string{e.Product, e.Edition, e.Platform, e.Version} {
		if want == "" || i >= len(segments) {
			continue
		}
		if !strings.EqualFold(segments[i], want) {
			return fmt.Errorf("entry %q: uri segment %d is %q, scope field says %q",
				e.ID, i, segments[i], want)
		}
	}
	for _, tag := range e.Tags {
		if tag != strings.ToLower(tag) {
			return fmt.Errorf("entry %q: tag %q is not lowercase", e.ID, tag)
		}
	}
	return nil
}

// ParseURI splits a catalog URI of the form scheme://seg0/seg1/... into its
// scheme and path segments.
func ParseURI(uri string) (scheme string, segments []string, err error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" || rest == "" {
		return "", nil, fmt.Errorf("malformed uri %q", uri)
	}
	return scheme, strings.Split(rest, "/"), nil
}
