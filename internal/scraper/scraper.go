// Package scraper extracts candidate paragraphs and image URLs from the
// rendered HTML a WordPress post carries. The heuristics are deliberately
// generic: paragraph tags for text, lazy-load attributes for images.
package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// imgAttrs in priority order; lazy-load attributes beat the plain src,
// which often points at a placeholder.
var imgAttrs = []string{"data-src", "data-lazy-src", "data-srcset", "srcset", "src"}

// badRunes matches zero-width and bidi control characters that sneak into
// rendered WordPress content and confuse translators.
var badRunes = regexp.MustCompile("[​-‏\ufeff ]")

// Title returns the plain text of a rendered title fragment.
func Title(renderedHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(renderedHTML))
	if err != nil {
		return strings.TrimSpace(renderedHTML)
	}
	return strings.TrimSpace(doc.Text())
}

// Paragraphs returns the trimmed, cleaned text of every non-empty <p> in
// the rendered content, in document order.
func Paragraphs(renderedHTML string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(renderedHTML))
	if err != nil {
		return nil
	}

	var paras []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := CleanText(strings.TrimSpace(s.Text()))
		if text != "" {
			paras = append(paras, text)
		}
	})
	return paras
}

// ImageCandidates returns up to max unique image URLs from <img> tags,
// taking the first whitespace token of the first populated attribute.
func ImageCandidates(renderedHTML string, max int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(renderedHTML))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var urls []string

	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(urls) >= max {
			return false
		}
		src := imageURL(s)
		if src == "" {
			return true
		}
		if _, dup := seen[src]; dup {
			return true
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
		return true
	})
	return urls
}

// imageURL picks the best URL attribute of one <img> selection.
func imageURL(s *goquery.Selection) string {
	for _, attr := range imgAttrs {
		val, ok := s.Attr(attr)
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		// srcset values are "url width, url width, ..."; the first token
		// is always a URL.
		return strings.Fields(val)[0]
	}
	return ""
}

// CleanText strips invisible control runes the sites embed in body text.
func CleanText(text string) string {
	return badRunes.ReplaceAllString(text, "")
}
