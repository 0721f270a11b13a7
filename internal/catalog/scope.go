package catalog

import (
	"strconv"
	"strings"
)

// Scope narrows a query to a slice of the catalog. Empty dimensions match
// everything; entries without a dimension are unscoped and match any filter
// on it.
type Scope struct {
	Product  string
	Edition  string
	Platform string
	Version  string
}

// IsZero reports whether the scope has no active dimensions.
func (s Scope) IsZero() bool {
	return s.Product == "" && s.Edition == "" && s.Platform == "" && s.Version == ""
}

// Matches reports whether the entry falls inside the scope.
func (s Scope) Matches(e Entry) bool {
	if s.Product != "" && e.Product != "" && !strings.EqualFold(e.Product, s.Product) {
		return false
	}
	if s.Edition != "" && e.Edition != "" && !strings.EqualFold(e.Edition, s.Edition) {
		return false
	}
	if s.Platform != "" && !matchPlatform(e, s.Platform) {
		return false
	}
	if s.Version != "" && e.Version != "" && !matchVersion(e.Version, s.Version) {
		return false
	}
	return true
}

// matchVersion compares version values across spellings: "4", "v4" and
// "4.2" all land on major 4.
func matchVersion(have, want string) bool {
	if strings.EqualFold(have, want) {
		return true
	}
	major := versionMajor(have)
	return major != 0 && major == versionMajor(want)
}

// versionMajor extracts the leading major number from "v4", "4" or "4.2.1".
// Returns 0 when there is none.
func versionMajor(v string) int {
	v = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "v")
	if dot := strings.IndexByte(v, '.'); dot >= 0 {
		v = v[:dot]
	}
	major, err := strconv.Atoi(v)
	if err != nil || major <= 0 {
		return 0
	}
	return major
}

// platformAlias maps a requested platform value to the umbrella platform it
// lives under plus the tag spellings that identify it when several frameworks
// share one umbrella. Plain data, extended as products add platforms.
type platformAlias struct {
	umbrella string
	tags     []string
}

var platformAliases = map[string]platformAlias{
	"react":        {umbrella: "web", tags: []string{"react", "reactjs"}},
	"reactjs":      {umbrella: "web", tags: []string{"react", "reactjs"}},
	"angular":      {umbrella: "web", tags: []string{"angular"}},
	"vue":          {umbrella: "web", tags: []string{"vue", "vuejs"}},
	"nextjs":       {umbrella: "web", tags: []string{"nextjs", "next"}},
	"react-native": {umbrella: "mobile", tags: []string{"react-native", "rn"}},
	"flutter":      {umbrella: "mobile", tags: []string{"flutter", "dart"}},
	"maui":         {umbrella: "dotnet", tags: []string{"maui"}},
}

func matchPlatform(e Entry, want string) bool {
	if e.Platform == "" {
		return true
	}
	want = strings.ToLower(want)
	if strings.EqualFold(e.Platform, want) {
		return true
	}
	alias, ok := platformAliases[want]
	if !ok || !strings.EqualFold(e.Platform, alias.umbrella) {
		return false
	}
	// Umbrella platform: the entry qualifies only if its tags name the
	// requested framework.
	for _, t := range alias.tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}
