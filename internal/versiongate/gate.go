// Package versiongate enforces the major-version policy: queries against a
// non-latest major of a product are refused with a redirect message before
// any embedding or search work is spent on them.
package versiongate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/helioscale/sdkdex/internal/catalog"
)

// LegacyLink points at archived documentation for one supported legacy major,
// optionally narrowed to an edition and platform.
type LegacyLink struct {
	Major    int
	Edition  string // empty matches any edition
	Platform string // empty matches any platform
	URL      string
}

// ProductPolicy describes the legacy support of one product. A product absent
// from the policy table supports only its latest major.
type ProductPolicy struct {
	OldestSupported int
	Links           []LegacyLink
}

// Request carries everything the gate may infer product and major from.
type Request struct {
	Product  string
	Version  string // explicit version string, e.g. "v4" or "4.2.1"
	Edition  string
	Platform string
	Hints    string // free text to fall back on for product/major inference
}

// Decision is the gate's structured verdict. A refusal carries a message the
// caller renders directly; it is never an error. LegacyLinks lists the
// archive URLs backing the message, when any exist.
type Decision struct {
	OK          bool
	Message     string
	LegacyLinks []string
}

// Gate checks requested majors against the catalog's latest known major per
// product. It holds no mutable state and is safe for concurrent use.
type Gate struct {
	cat      *catalog.Catalog
	policies map[string]ProductPolicy
}

// NewGate creates a version gate. policies may be nil, in which case every
// product is treated as latest-major-only.
func NewGate(cat *catalog.Catalog, policies map[string]ProductPolicy) *Gate {
	normalized := make(map[string]ProductPolicy, len(policies))
	for product, p := range policies {
		normalized[strings.ToLower(product)] = p
	}
	return &Gate{cat: cat, policies: normalized}
}

// PoliciesFromCatalog derives the legacy policy table from policy-type
// entries: each one contributes a legacy link for its major, and the smallest
// major seen per product becomes the oldest supported one.
func PoliciesFromCatalog(cat *catalog.Catalog) map[string]ProductPolicy {
	policies := make(map[string]ProductPolicy)
	for _, e := range cat.Entries() {
		if e.Type != catalog.TypePolicy || e.Product == "" || e.MajorVersion == 0 {
			continue
		}
		product := strings.ToLower(e.Product)
		p := policies[product]
		p.Links = append(p.Links, LegacyLink{
			Major:    e.MajorVersion,
			Edition:  strings.ToLower(e.Edition),
			Platform: strings.ToLower(e.Platform),
			URL:      e.URI,
		})
		if p.OldestSupported == 0 || e.MajorVersion < p.OldestSupported {
			p.OldestSupported = e.MajorVersion
		}
		policies[product] = p
	}
	return policies
}

// majorPatterns pull a major version number out of free text, most specific
// first: "v4", "version 4", "4.x", "4.2.1".
var majorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bv(\d+)\b`),
	regexp.MustCompile(`(?i)\bversion\s+(\d+)\b`),
	regexp.MustCompile(`\b(\d+)\.(?:x|X|\d+)`),
}

// Check decides whether a request may proceed to search. It passes when no
// product or no major can be determined, and when the requested major is the
// latest one; anything older is refused with an actionable message.
func (g *Gate) Check(req Request) Decision {
	product := strings.ToLower(strings.TrimSpace(req.Product))
	if product == "" {
		product = g.inferProduct(req.Hints)
	}
	if product == "" {
		return Decision{OK: true}
	}

	latest, known := g.cat.LatestMajor(product)
	if !known {
		return Decision{OK: true}
	}

	major := parseMajor(req.Version)
	if major == 0 {
		major = majorFromText(req.Hints)
	}
	if major == 0 || major >= latest {
		return Decision{OK: true}
	}

	policy, hasPolicy := g.policies[product]
	if !hasPolicy || len(policy.Links) == 0 {
		return Decision{
			Message: fmt.Sprintf("%s v%d is not supported: only the latest major version (v%d) is available", product, major, latest),
		}
	}
	if major < policy.OldestSupported {
		return Decision{
			Message: fmt.Sprintf("%s v%d is no longer supported: the oldest supported major is v%d and the latest is v%d", product, major, policy.OldestSupported, latest),
		}
	}

	if url, ok := policy.link(major, req.Edition, req.Platform); ok {
		return Decision{
			Message:     fmt.Sprintf("%s v%d is a legacy major; current content covers v%d. Legacy documentation: %s", product, major, latest, url),
			LegacyLinks: []string{url},
		}
	}
	urls := policy.allLinks()
	return Decision{
		Message:     fmt.Sprintf("%s v%d is a legacy major; current content covers v%d. Legacy documentation: %s", product, major, latest, strings.Join(urls, ", ")),
		LegacyLinks: urls,
	}
}

// inferProduct scans the free-text hints for a known product name.
func (g *Gate) inferProduct(hints string) string {
	if hints == "" {
		return ""
	}
	lower := strings.ToLower(hints)
	for _, product := range g.cat.Products() {
		if containsWord(lower, product) {
			return product
		}
	}
	return ""
}

// link finds the most specific legacy link for a major: edition and platform
// must match when the link declares them.
func (p ProductPolicy) link(major int, edition, platform string) (string, bool) {
	edition = strings.ToLower(edition)
	platform = strings.ToLower(platform)
	for _, l := range p.Links {
		if l.Major != major {
			continue
		}
		if l.Edition != "" && l.Edition != edition {
			continue
		}
		if l.Platform != "" && l.Platform != platform {
			continue
		}
		return l.URL, true
	}
	return "", false
}

// allLinks enumerates every known legacy link, ordered by major.
func (p ProductPolicy) allLinks() []string {
	links := make([]LegacyLink, len(p.Links))
	copy(links, p.Links)
	sort.SliceStable(links, func(i, j int) bool { return links[i].Major < links[j].Major })

	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = fmt.Sprintf("v%d: %s", l.Major, l.URL)
	}
	return urls
}

// parseMajor extracts the leading major number from an explicit version
// string such as "v4", "4" or "4.2.1". Returns 0 when there is none.
func parseMajor(version string) int {
	version = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(version), "v"))
	if version == "" {
		return 0
	}
	if dot := strings.IndexByte(version, '.'); dot >= 0 {
		version = version[:dot]
	}
	major, err := strconv.Atoi(version)
	if err != nil || major <= 0 {
		return 0
	}
	return major
}

// majorFromText pattern-matches a major version number out of free text.
func majorFromText(text string) int {
	for _, re := range majorPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if major, err := strconv.Atoi(m[1]); err == nil && major > 0 {
			return major
		}
	}
	return 0
}

// containsWord reports whether word occurs in text on word boundaries.
func containsWord(text, word string) bool {
	for start := 0; ; {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		beforeOK := i == 0 || !isWordByte(text[i-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
