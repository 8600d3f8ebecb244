// Package labels groups graph labels into feature categories by keyword.
package labels

import (
	"sort"
	"strings"
)

// OtherCategory collects labels that match no keyword.
const OtherCategory = "Other Labels"

// Category is a named bucket and the keywords that select it.
type Category struct {
	Name     string
	Keywords []string
}

// DefaultCategories is checked in order; the first matching category wins.
var DefaultCategories = []Category{
	{Name: "Step Labels", Keywords: []string{"step", "Step"}},
	{Name: "Hole Labels", Keywords: []string{"hole", "Hole"}},
	{Name: "Slot Labels", Keywords: []string{"slot", "Slot"}},
	{Name: "Pocket Labels", Keywords: []string{"pocket", "Pocket"}},
	{Name: "Passage Labels", Keywords: []string{"passage", "Passage"}},
}

// Group is one category and its labels.
type Group struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

// Categorized holds every category in order, empty ones included.
type Categorized []Group

// Categorizer assigns labels to categories by case-sensitive substring match.
type Categorizer struct {
	categories []Category
}

// NewCategorizer uses DefaultCategories when none are given.
func NewCategorizer(categories ...Category) *Categorizer {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	return &Categorizer{categories: categories}
}

// Categorize sorts and de-duplicates labels, then buckets each one into the
// first category with a keyword contained in it.
func (c *Categorizer) Categorize(labels []string) Categorized {
	groups := make(Categorized, 0, len(c.categories)+1)
	for _, cat := range c.categories {
		groups = append(groups, Group{Name: cat.Name, Labels: []string{}})
	}
	groups = append(groups, Group{Name: OtherCategory, Labels: []string{}})

	for _, label := range uniqueSorted(labels) {
		idx := len(groups) - 1
		for i, cat := range c.categories {
			if matchesAny(label, cat.Keywords) {
				idx = i
				break
			}
		}
		groups[idx].Labels = append(groups[idx].Labels, label)
	}
	return groups
}

// Flatten returns every label in category order.
func (c Categorized) Flatten() []string {
	var out []string
	for _, g := range c {
		out = append(out, g.Labels...)
	}
	return out
}

// AsMap keys the groups by category name.
func (c Categorized) AsMap() map[string][]string {
	out := make(map[string][]string, len(c))
	for _, g := range c {
		out[g.Name] = g.Labels
	}
	return out
}

func matchesAny(label string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(label, k) {
			return true
		}
	}
	return false
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
