package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"@relay notag", Notag, true},
		{"@relay NoTag!", Notag, true},
		{"@relay tag", Tag, true},
		{"@relay untag please", Untag, true},
		{"@relay tag notag", Notag, true},
		{"@relay untag, then tag", Tag, true},
		{"@relay tagged", "", false},
		{"@relay #hashtag", "", false},
		{"@relay not-ag", "", false},
		{"@relay hello", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			cmd, ok := Parse(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, cmd.Name)
			if ok {
				assert.NotEmpty(t, cmd.Reply)
			}
		})
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"relay", "a_b", "c1"}, Tokens("@Relay a_b,c1"))
}
