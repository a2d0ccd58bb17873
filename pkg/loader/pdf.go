package loader

import (
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/docq-ai/docq/internal/models"
)

// loadPDF extracts text page by page so answers can cite page numbers.
// Pages without extractable text (scanned images, pure graphics) are skipped.
func (l *Loader) loadPDF(path string) ([]models.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []models.Document

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		docs = append(docs, models.Document{
			Content: text,
			Page:    i,
		})
	}

	return docs, nil
}
