package entities

import (
	"sort"
	"strings"
)

// TagPrefix is the conventional marker in front of every interest tag. It
// carries no meaning: "#art" and "art" are the same tag.
const TagPrefix = "#"

// NormalizeTag trims, lowercases and re-prefixes a tag. It returns "" for
// tags that are empty once the prefix and whitespace are removed.
func NormalizeTag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	t = strings.TrimSpace(strings.TrimLeft(t, TagPrefix))
	if t == "" {
		return ""
	}
	return TagPrefix + t
}

// NormalizeTags normalizes every tag and returns the sorted, de-duplicated
// result without empty entries. The result is never nil.
func NormalizeTags(tags []string) []string {
	set := NewTagSet(tags)
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TagSet is a set of normalized tags.
type TagSet map[string]struct{}

// NewTagSet normalizes tags into a set.
func NewTagSet(tags []string) TagSet {
	set := make(TagSet, len(tags))
	for _, raw := range tags {
		if t := NormalizeTag(raw); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// Intersect returns the sorted tags of other that are also in s. other is
// normalized before comparison.
func (s TagSet) Intersect(other []string) []string {
	var shared []string
	for t := range NewTagSet(other) {
		if _, ok := s[t]; ok {
			shared = append(shared, t)
		}
	}
	sort.Strings(shared)
	return shared
}
