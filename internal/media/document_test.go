package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeDocument_FallbackSummary(t *testing.T) {
	for _, text := range []string{"", "   \n\t  "} {
		doc := SummarizeDocument(text, "Empty")
		assert.Equal(t, emptySummaryText, doc.Summary)
		assert.Equal(t, 0, doc.CharCount)
		assert.Empty(t, doc.Keywords)
		assert.NotNil(t, doc.Keywords)
	}
}

func TestSummarizeDocument_FirstThreeSentences(t *testing.T) {
	text := "First sentence here.  Second one!\nThird?   Fourth sentence. Fifth."

	doc := SummarizeDocument(text, "Doc")

	assert.Equal(t, "Doc", doc.Title)
	assert.Equal(t, "First sentence here. Second one! Third?", doc.Summary)
	assert.Equal(t, "First sentence here. Second one! Third? Fourth sentence. Fifth.", doc.TextPreview)
	assert.Equal(t, len(doc.TextPreview), doc.CharCount)
}

func TestSummarizeDocument_NoTerminalPunctuation(t *testing.T) {
	doc := SummarizeDocument("just some words without an ending", "t")
	assert.Equal(t, "just some words without an ending", doc.Summary)
}

func TestSummarizeDocument_Truncation(t *testing.T) {
	long := strings.Repeat("é", 2000)

	doc := SummarizeDocument(long, "t")

	assert.Equal(t, 800, len([]rune(doc.Summary)))
	assert.Equal(t, 1200, len([]rune(doc.TextPreview)))
	assert.Equal(t, 2000, doc.CharCount)
}

func TestSummarizeDocument_Keywords(t *testing.T) {
	text := "Gamma beta alpha. The gamma and the beta are here. Gamma dan yang ini. " +
		"To be or no. Résumé résumé item_1 x-ray"

	doc := SummarizeDocument(text, "t")

	assert.Equal(t, []string{"gamma", "beta", "résumé", "alpha", "here", "item_1", "x-ray"}, doc.Keywords)
}

func TestSummarizeDocument_KeywordLimit(t *testing.T) {
	var words []string
	for _, w := range []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten", "eleven", "twelve"} {
		words = append(words, "word"+w)
	}

	doc := SummarizeDocument(strings.Join(words, " "), "t")

	assert.Len(t, doc.Keywords, 10)
	assert.Equal(t, "wordone", doc.Keywords[0])
	assert.Equal(t, "wordten", doc.Keywords[9])
}

func TestExtractWebpage(t *testing.T) {
	raw := []byte(`<!doctype html><html><head>
<TITLE class="x">
  Hello &amp; Welcome
</TITLE>
<style>body { color: red; }</style>
<script type="text/javascript">var hidden = "secret";</script>
</head><body><h1>Header</h1><p>Some&nbsp;text &lt;here&gt;.</p></body></html>`)

	title, text := ExtractWebpage(raw)

	assert.Equal(t, "Hello & Welcome", title)
	assert.NotContains(t, text, "secret")
	assert.NotContains(t, text, "color")
	assert.Contains(t, text, "Header")
	assert.Contains(t, text, "<here>.")
	assert.NotContains(t, text, "  ")
}

func TestExtractWebpage_NoTitle(t *testing.T) {
	title, text := ExtractWebpage([]byte("<p>only body</p>"))
	assert.Equal(t, "", title)
	assert.Equal(t, "only body", text)
}

func TestExtractWebpage_NoscriptMarkupStripped(t *testing.T) {
	raw := []byte(`<title>T</title><p>Hello world sentence.</p><noscript><img src="/fallback.jpg"><p>Enable JS</p></noscript>`)

	title, text := ExtractWebpage(raw)

	assert.Equal(t, "T", title)
	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, "fallback")
	assert.Contains(t, text, "Hello world sentence.")
	assert.Contains(t, text, "Enable JS")

	doc := SummarizeDocument(text, title)
	assert.NotContains(t, doc.Keywords, "img")
	assert.NotContains(t, doc.Keywords, "src")
}
