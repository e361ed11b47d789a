// Package chunk splits long article text into bounded pieces for the
// Telegram message limit and for translation APIs with character caps.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ParagraphSep joins paragraphs inside a chunk and between chunks.
const ParagraphSep = "\n\n"

// Sentinel separates title from body when both are sent through a
// translation API as one document. Padded triple pipe survives most
// translators untouched.
const Sentinel = " ||| "

// relaxedSentinel matches the sentinel after a translator mangled the
// whitespace around it.
var relaxedSentinel = regexp.MustCompile(`\s*\|\|\|\s*`)

// Split cuts text into chunks of at most maxLen bytes while keeping
// paragraphs intact. A paragraph longer than maxLen is split on word
// boundaries; a single word longer than maxLen is emitted whole, which is
// the only case where a chunk may exceed the budget.
func Split(text string, maxLen int) []string {
	norm := strings.ReplaceAll(text, "\r\n", "\n")

	var paras []string
	for _, p := range strings.Split(norm, ParagraphSep) {
		if strings.TrimSpace(p) != "" {
			paras = append(paras, p)
		}
	}

	var chunks []string
	var curr string

	for _, p := range paras {
		if len(p) > maxLen {
			if curr != "" {
				chunks = append(chunks, curr)
				curr = ""
			}
			chunks = append(chunks, splitWords(p, maxLen)...)
			continue
		}

		switch {
		case curr == "":
			curr = p
		case len(curr)+len(ParagraphSep)+len(p) <= maxLen:
			curr += ParagraphSep + p
		default:
			chunks = append(chunks, curr)
			curr = p
		}
	}

	if curr != "" {
		chunks = append(chunks, curr)
	}
	return chunks
}

// splitWords breaks one oversize paragraph on spaces. Words are never cut.
func splitWords(p string, maxLen int) []string {
	var parts []string
	var sub string

	for _, w := range strings.Split(p, " ") {
		switch {
		case sub == "":
			sub = w
		case len(sub)+1+len(w) <= maxLen:
			sub += " " + w
		default:
			parts = append(parts, sub)
			sub = w
		}
	}
	if sub != "" {
		parts = append(parts, sub)
	}
	return parts
}

// JoinTitleBody bundles title and body into one document so that a
// translation round trip keeps the boundary recoverable.
func JoinTitleBody(title, body string) string {
	return title + Sentinel + body
}

// SplitForTranslation cuts a combined document into segments no longer than
// limit. It prefers cutting after the nearest double newline inside the
// window, then after a sentence end, and hard-cuts at limit when neither is
// found. Concatenating the segments reproduces the input byte for byte.
func SplitForTranslation(s string, limit int) []string {
	if limit <= 0 || len(s) <= limit {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var segs []string
	for len(s) > limit {
		window := s[:limit]
		cut := limit
		if idx := strings.LastIndex(window, ParagraphSep); idx > 0 {
			cut = idx + len(ParagraphSep)
		} else if idx := lastSentenceEnd(window); idx > 0 {
			cut = idx
		} else {
			// Hard cut may land inside a multi-byte rune; back up so no
			// segment carries invalid UTF-8.
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			if cut == 0 {
				_, size := utf8.DecodeRuneInString(s)
				cut = size
			}
		}
		segs = append(segs, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		segs = append(segs, s)
	}
	return segs
}

// lastSentenceEnd returns the offset just past the last sentence terminator
// followed by whitespace, or 0 when the window has none.
func lastSentenceEnd(window string) int {
	best := 0
	for _, mark := range []string{". ", ".\n", "! ", "? "} {
		if idx := strings.LastIndex(window, mark); idx >= 0 && idx+len(mark) > best {
			best = idx + len(mark)
		}
	}
	return best
}

// Recombine joins translated segments back together and splits them into
// title and body at the sentinel. When the translator dropped the sentinel
// entirely, the first line becomes the title and the rest the body; this
// degradation never fails.
func Recombine(translated []string) (title, body string) {
	return SplitTranslated(strings.Join(translated, ""))
}

// SplitTranslated splits one translated document at the sentinel, trying the
// exact form first and a whitespace-tolerant form second.
func SplitTranslated(s string) (title, body string) {
	if idx := strings.Index(s, Sentinel); idx >= 0 {
		// Extra padding around the marker is translator noise.
		return strings.TrimRight(s[:idx], " \t"), strings.TrimLeft(s[idx+len(Sentinel):], " \t")
	}
	if loc := relaxedSentinel.FindStringIndex(s); loc != nil {
		return s[:loc[0]], s[loc[1]:]
	}

	// Sentinel lost in translation: first line is the best guess for the title.
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:])
	}
	return s, ""
}
