package fetch

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxExtractLen caps extracted article text so one pathological page cannot
// flood the structurer.
const MaxExtractLen = 50_000

// ExtractArticle derives the page title and clean article text from raw HTML,
// stripping markup and boilerplate elements. Returns empty strings if the
// document cannot be parsed or has no body text; the caller decides whether
// empty extraction is an error.
func ExtractArticle(html []byte) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, nav, header, footer, aside, noscript, iframe").Remove()

	text = strings.TrimSpace(doc.Find("body").Text())

	// Collapse runs of whitespace left behind by removed elements
	fields := strings.Fields(text)
	text = strings.Join(fields, " ")

	if len(text) > MaxExtractLen {
		text = text[:MaxExtractLen]
	}

	return title, text
}
