package scanner

import (
	"testing"

	"board-relay/models"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"cafe", "don't", "stop"}, Tokenize("Café, DON'T   stop!"))
	assert.Equal(t, []string{"full"}, Tokenize("ｆｕｌｌ"))
	assert.Empty(t, Tokenize("?!"))
}

func TestFilterCheck(t *testing.T) {
	f := NewFilter([]string{"Spoiler"}, []string{`bad\s+thing`, `([unclosed`})

	cases := []struct {
		name    string
		post    models.Post
		flagged bool
		reason  string
	}{
		{"clean", models.Post{Body: "hello world"}, false, ""},
		{"word in body", models.Post{Body: "huge <b>SPOILER</b> ahead"}, true, "badword: spoiler"},
		{"word in subject", models.Post{Subject: "spoiler"}, true, "badword: spoiler"},
		{"word in filename", models.Post{DisplayName: "spöiler"}, true, "badword: spoiler"},
		{"substring is not a word", models.Post{Body: "spoilers"}, false, ""},
		{"regex", models.Post{Body: "a Bad   Thing happened"}, true, `badregex: bad\s+thing`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, flagged := f.Check([]models.Post{{Body: "op"}, tc.post})
			assert.Equal(t, tc.flagged, flagged)
			assert.Equal(t, tc.reason, reason)
		})
	}
}
