package media

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html/atom"
)

const (
	summarySentences = 3
	summaryMaxChars  = 800
	previewMaxChars  = 1200
	keywordLimit     = 10
	emptySummaryText = "Text content is very short or could not be extracted."
	defaultPDFTitle  = "PDF Document"
	defaultPageTitle = "Web Page"
	defaultTextTitle = "Text Document"
)

var wordPattern = regexp.MustCompile(`[A-Za-zÀ-ÿ][A-Za-zÀ-ÿ0-9_-]{2,}`)

// English and Indonesian function words excluded from keywords.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "will": {}, "you": {}, "your": {},
	"have": {}, "has": {}, "not": {}, "but": {},
	"dan": {}, "yang": {}, "untuk": {}, "dengan": {}, "dari": {}, "atau": {},
	"akan": {}, "pada": {}, "dalam": {}, "tidak": {}, "ini": {}, "itu": {},
	"ada": {}, "juga": {}, "saat": {},
}

// SummarizeDocument builds the extractive summary, keywords and preview of
// a text.
func SummarizeDocument(text, title string) *DocumentSummary {
	normalized := normalizeWhitespace(text)

	summary := strings.TrimSpace(strings.Join(firstN(splitSentences(normalized), summarySentences), " "))
	if summary == "" {
		summary = emptySummaryText
	}

	return &DocumentSummary{
		Title:       title,
		Summary:     truncateRunes(summary, summaryMaxChars),
		Keywords:    topKeywords(normalized, keywordLimit),
		TextPreview: truncateRunes(normalized, previewMaxChars),
		CharCount:   utf8.RuneCountInString(normalized),
	}
}

// ExtractWebpage returns the page title and its visible text. Script and
// style contents are dropped.
func ExtractWebpage(raw []byte) (title, text string) {
	doc, err := parseMarkup(decodeText(raw))
	if err != nil {
		return "", ""
	}

	if t := findElement(doc, atom.Title); t != nil {
		title = strings.TrimSpace(textContent(t))
	}
	return title, normalizeWhitespace(textContent(doc))
}

func decodeText(raw []byte) string {
	return string(bytes.ToValidUTF8(raw, nil))
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitSentences cuts after '.', '!' or '?' when whitespace follows. The
// input is whitespace-normalized, so the separator is a single space.
func splitSentences(s string) []string {
	if s == "" {
		return nil
	}
	var sentences []string
	start := 0
	runes := []rune(s)
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) {
				sentences = append(sentences, string(runes[start:i+1]))
				start = i + 2
				i++
			}
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func topKeywords(normalized string, limit int) []string {
	words := wordPattern.FindAllString(strings.ToLower(normalized), -1)

	counts := make(map[string]int)
	var order []string
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return firstN(order, limit)
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	if items == nil {
		return []string{}
	}
	return items
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
