package media

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const pdfMaxPages = 10

// TextExtractor pulls plain text out of a document's first maxPages pages.
type TextExtractor interface {
	ExtractText(data []byte, maxPages int) (string, error)
}

// PDFTextExtractor reads PDFs in memory.
type PDFTextExtractor struct{}

func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

func (PDFTextExtractor) ExtractText(data []byte, maxPages int) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := reader.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		parts = append(parts, pageText)
	}

	return normalizeWhitespace(strings.Join(parts, " ")), nil
}
