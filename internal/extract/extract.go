// Package extract turns scraped article HTML into plain text and a sanitized
// HTML variant.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/clearview/clearview_api/pkg/models"
)

// Result holds both renderings of a document.
type Result struct {
	Text          string `json:"cleaned_text"`
	SanitizedHTML string `json:"sanitized_html"`
}

var policy = bluemonday.UGCPolicy()

// Extract removes script and style elements, then renders the document twice:
// once as sanitized HTML without style/class attributes, and once as plain
// text with <br> as a newline and a blank line after every paragraph, folded
// into one chunk per line.
func Extract(raw string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("%w: html: %v", models.ErrParse, err)
	}

	doc.Find("script, style").Remove()

	sanitized, err := sanitize(doc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: render html: %v", models.ErrParse, err)
	}

	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(textNode("\n"))
	})
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		s.AppendNodes(textNode("\n\n"))
	})

	return Result{Text: Normalize(doc.Text()), SanitizedHTML: sanitized}, nil
}

func textNode(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

// sanitize renders the body of a clone of doc, so later text-oriented
// mutations of doc do not leak into the HTML output.
func sanitize(doc *goquery.Document) (string, error) {
	clone := goquery.CloneDocument(doc)
	clone.Find("*").Each(func(_ int, s *goquery.Selection) {
		s.RemoveAttr("style")
		s.RemoveAttr("class")
	})
	body, err := clone.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(policy.Sanitize(body)), nil
}

// Normalize strips every line, splits lines on double spaces, drops empty
// chunks and joins the rest with single newlines. Any line boundary counts,
// including a lone "\r" and the unicode line and paragraph separators.
func Normalize(text string) string {
	var chunks []string
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		line = strings.TrimSpace(line)
		for _, phrase := range strings.Split(line, "  ") {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, "\n")
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
