// Package stopwords filters articles whose title hits a configured
// stop phrase.
package stopwords

import (
	"bufio"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Set holds lowercase stop phrases with their compiled word-boundary
// patterns.
type Set struct {
	patterns map[string]*regexp.Regexp
}

// Load reads one stop phrase per line. A missing file disables the check;
// a read error is logged and also disables it, the filter is advisory.
func Load(path string, log *slog.Logger) *Set {
	s := &Set{patterns: make(map[string]*regexp.Regexp)}

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("cannot read stopwords file", "path", path, "error", err)
		} else {
			log.Debug("no stopwords file, title check disabled", "path", path)
		}
		return s
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		phrase := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if phrase == "" {
			continue
		}
		s.patterns[phrase] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
	}
	if err := scanner.Err(); err != nil {
		log.Warn("error reading stopwords file", "path", path, "error", err)
	}

	log.Info("loaded stopwords", "count", len(s.patterns), "path", path)
	return s
}

// Len returns the number of loaded phrases.
func (s *Set) Len() int {
	return len(s.patterns)
}

// Match returns the first stop phrase found in title as a whole word,
// case-insensitively, or "" when the title is clean.
func (s *Set) Match(title string) string {
	for phrase, re := range s.patterns {
		if re.MatchString(title) {
			return phrase
		}
	}
	return ""
}
