package model

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText reduces post content to whitespace-normalised text. Content written in the
// dashboard editor may carry markup; it is parsed and only the text nodes are kept.
func PlainText(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return strings.Join(strings.Fields(content), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return strings.Join(strings.Fields(content), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Paragraphs splits plain post content on blank lines for display.
func Paragraphs(content string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}
