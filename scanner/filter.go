package scanner

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"board-relay/models"
	"board-relay/utils"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var wordChars = regexp.MustCompile(`[\pL\pN_']+`)

// Tokenize lowercases text, folds it with NFKD minus combining marks and
// splits it into words.
func Tokenize(text string) []string {
	// transformers carry state, so build one per call
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	lower := strings.ToLower(text)
	folded, _, err := transform.String(fold, lower)
	if err != nil {
		folded = lower
	}
	return wordChars.FindAllString(folded, -1)
}

// Filter is the moderation word and pattern filter.
type Filter struct {
	words    map[string]struct{}
	patterns []*regexp.Regexp
}

// NewFilter compiles the filter. Invalid patterns are logged and skipped.
func NewFilter(badwords, badregex []string) *Filter {
	f := &Filter{words: make(map[string]struct{}, len(badwords))}
	for _, w := range badwords {
		for _, tok := range Tokenize(w) {
			f.words[tok] = struct{}{}
		}
	}
	for _, expr := range badregex {
		re, err := regexp.Compile(expr)
		if err != nil {
			utils.Warn("scanner", "compile badregex", fmt.Sprintf("ignoring pattern %q: %v", expr, err))
			continue
		}
		f.patterns = append(f.patterns, re)
	}
	return f
}

func postText(p models.Post) string {
	return strings.Join([]string{PlainText(p.Body), p.DisplayName, p.Subject}, " ")
}

// Check reports whether any post trips the filter and why.
func (f *Filter) Check(posts []models.Post) (string, bool) {
	for _, p := range posts {
		text := postText(p)
		if len(f.words) > 0 {
			for _, w := range Tokenize(text) {
				if _, bad := f.words[w]; bad {
					return "badword: " + w, true
				}
			}
		}
		if len(f.patterns) > 0 {
			lower := strings.ToLower(text)
			for _, re := range f.patterns {
				if re.MatchString(lower) {
					return "badregex: " + re.String(), true
				}
			}
		}
	}
	return "", false
}
