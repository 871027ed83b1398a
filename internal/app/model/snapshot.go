package model

import (
	"encoding/json"
	"strings"
)

const (
	// DateLayout is the upstream menu date format (MM/DD/YY).
	DateLayout = "01/02/06"

	UncategorizedName = "Uncategorized"
)

// MenuSnapshot is one scraped menu page: the ordered items served for a
// date, meal and campus.
type MenuSnapshot struct {
	Date     string         `json:"date" binding:"required"`
	CampusID uint           `json:"campus_id" binding:"required"`
	MealName string         `json:"meal" binding:"required"`
	Items    []SnapshotItem `json:"items"`
}

// SnapshotItem is a single food line on a scraped page.
type SnapshotItem struct {
	Value    string   `json:"value"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// NormalizeKey is the comparison form of a name: trimmed and lower-cased.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CategoryName returns the display name a raw category resolves to.
func CategoryName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return UncategorizedName
	}
	return name
}

// NormalizeTags trims tags and drops blanks and repeats. Repeats are
// matched like names, so "Vegan" and " vegan" are one tag; the first
// spelling and position win.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := NormalizeKey(tag)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, tag)
	}
	return cleaned
}

// JoinTags serializes tags as a JSON array after NormalizeTags. No tags
// serialize to "".
func JoinTags(tags []string) string {
	cleaned := NormalizeTags(tags)
	if len(cleaned) == 0 {
		return ""
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return ""
	}
	return string(raw)
}

// SplitTags is the inverse of JoinTags. Unreadable input yields no tags.
func SplitTags(serialized string) []string {
	tags := []string{}
	if serialized == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(serialized), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}
