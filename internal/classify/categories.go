package classify

import "strings"

// Categories is the closed set of labels a license can be classified into.
var Categories = []string{
	"Productivity",
	"Design",
	"Communication",
	"Development",
	"Finance",
	"Marketing",
}

// DefaultCategory is assigned whenever classification degrades to a fallback.
const DefaultCategory = "Development"

// ParseCategory resolves a raw token against the fixed label set. Matching is
// case-insensitive after trimming; the canonical label is returned on success.
func ParseCategory(token string) (string, bool) {
	trimmed := strings.TrimSpace(token)
	for _, category := range Categories {
		if strings.EqualFold(trimmed, category) {
			return category, true
		}
	}
	return "", false
}

// CategoryList renders the label set for prompts and error messages.
func CategoryList() string {
	return strings.Join(Categories, ", ")
}
