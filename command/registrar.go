package command

import (
	"strings"
	"unicode"
)

// Tokens lowercases text and splits it on anything that is not a letter,
// digit or underscore.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// Parse finds the highest-priority command appearing as an exact token.
func Parse(text string) (Command, bool) {
	present := map[string]bool{}
	for _, tok := range Tokens(text) {
		present[tok] = true
	}
	for _, cmd := range AllCommands {
		if present[cmd.Name] {
			return cmd, true
		}
	}
	return Command{}, false
}
