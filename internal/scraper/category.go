package scraper

import (
	"strings"

	"github.com/nao1215/onionboard/internal/model"
)

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = "General"

// DetectCategory returns the category of the first keyword whose word
// occurs in text, ignoring case.
func DetectCategory(text string, keywords []model.Keyword) string {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		word := strings.ToLower(strings.TrimSpace(kw.Word))
		if word == "" {
			continue
		}
		if strings.Contains(lower, word) {
			return kw.Category
		}
	}
	return DefaultCategory
}
