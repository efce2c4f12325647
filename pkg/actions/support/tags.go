package support

import (
	"strings"
)

// ParseTags reads a tag list given as comma separated text or as a list.
// Empty entries are dropped and the first occurrence of each tag is kept.
func ParseTags(value any) []string {
	var raw []string

	switch v := value.(type) {
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, strings.Split(s, ",")...)
			}
		}
	}

	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}

		if _, ok := seen[tag]; ok {
			continue
		}

		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	return tags
}

// FormatTags renders tags the way the commerce REST API stores them.
func FormatTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// UnionTags returns current followed by the requested tags it does not contain yet.
func UnionTags(current, requested []string) []string {
	out := append(make([]string, 0, len(current)+len(requested)), current...)
	present := toSet(current)

	for _, tag := range requested {
		if _, ok := present[tag]; !ok {
			present[tag] = struct{}{}
			out = append(out, tag)
		}
	}

	return out
}

// DifferenceTags returns current without the removed tags.
func DifferenceTags(current, removed []string) []string {
	drop := toSet(removed)
	out := make([]string, 0, len(current))

	for _, tag := range current {
		if _, ok := drop[tag]; !ok {
			out = append(out, tag)
		}
	}

	return out
}

// IntersectTags returns the tags of a that are also in b.
func IntersectTags(a, b []string) []string {
	keep := toSet(b)
	out := make([]string, 0, len(a))

	for _, tag := range a {
		if _, ok := keep[tag]; ok {
			out = append(out, tag)
		}
	}

	return out
}

// SameTags reports whether both lists hold the same set of tags.
func SameTags(a, b []string) bool {
	setA, setB := toSet(a), toSet(b)
	if len(setA) != len(setB) {
		return false
	}

	for tag := range setA {
		if _, ok := setB[tag]; !ok {
			return false
		}
	}

	return true
}

func toSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}

	return set
}
