package loader

import (
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/docq-ai/docq/internal/models"
)

// Selectors tried in order when looking for the main content area of an
// HTML document. Falls back to the whole body.
var contentSelectors = []string{
	"main",
	"article",
	".content",
	"#content",
	".documentation",
	"#documentation",
}

func (l *Loader) loadHTML(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, err
	}

	doc.Find("script, style, noscript").Remove()

	var content string
	for _, selector := range contentSelectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}

	// Collapse runs of whitespace left behind by markup.
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return nil, nil
	}

	docModel := models.Document{Content: content}
	if title := strings.TrimSpace(doc.Find("title").Text()); title != "" {
		docModel.Metadata = map[string]interface{}{"title": title}
	}

	return []models.Document{docModel}, nil
}
