// internal/grants/industry.go
package grants

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeIndustry lower-cases free-text industry and joins words with
// underscores so "Food Beverage" compares against the "food_beverage" tag.
func NormalizeIndustry(industry string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(industry), "_")
}

// RelationTable maps a normalised industry key to the keys that earn
// partial credit. Lookups are one-directional.
type RelationTable map[string][]string

// DefaultRelationTable returns a fresh copy of the curated table, so callers
// may extend it without touching other scorers.
func DefaultRelationTable() RelationTable {
	return RelationTable{
		"technology":            {"manufacturing", "services", "retail", "professional_services", "education", "clean_tech"},
		"retail":                {"food_beverage", "services", "technology", "tourism_hospitality"},
		"food_beverage":         {"retail", "agriculture", "tourism_hospitality", "manufacturing"},
		"services":              {"professional_services", "retail", "technology", "health_wellness"},
		"professional_services": {"services", "technology", "finance"},
		"health_wellness":       {"services", "retail", "food_beverage"},
		"manufacturing":         {"technology", "clean_tech", "agriculture", "construction"},
		"construction":          {"manufacturing", "clean_tech", "services"},
		"agriculture":           {"food_beverage", "clean_tech", "manufacturing"},
		"tourism_hospitality":   {"food_beverage", "retail", "creative_arts"},
		"creative_arts":         {"tourism_hospitality", "technology", "education"},
		"education":             {"technology", "services", "creative_arts"},
		"clean_tech":            {"technology", "manufacturing", "agriculture", "construction"},
		"transportation":        {"services", "manufacturing", "retail"},
		"finance":               {"professional_services", "technology", "services"},
	}
}

// Merge returns a new table holding t's entries overlaid with extra.
// Keys in extra are normalised; their lists replace t's list for that key.
func (t RelationTable) Merge(extra map[string][]string) RelationTable {
	out := make(RelationTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range extra {
		related := make([]string, 0, len(v))
		for _, r := range v {
			related = append(related, NormalizeIndustry(r))
		}
		out[NormalizeIndustry(k)] = related
	}
	return out
}

// Related reports whether any grant tag is listed as related to ideaKey.
// Tags are compared case-insensitively.
func (t RelationTable) Related(ideaKey string, tags []string) bool {
	related, ok := t[ideaKey]
	if !ok {
		return false
	}
	for _, tag := range tags {
		lt := strings.ToLower(tag)
		for _, r := range related {
			if lt == r {
				return true
			}
		}
	}
	return false
}

func hasWildcard(tags []string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, WildcardIndustry) {
			return true
		}
	}
	return false
}

// matchesIndustry accepts a tag equal to, contained in, or containing the key.
// An empty key matches nothing.
func matchesIndustry(key string, tags []string) bool {
	if key == "" {
		return false
	}
	for _, tag := range tags {
		lt := strings.ToLower(tag)
		if lt == "" {
			continue
		}
		if lt == key || strings.Contains(key, lt) || strings.Contains(lt, key) {
			return true
		}
	}
	return false
}
