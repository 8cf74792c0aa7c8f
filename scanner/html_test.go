package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaption(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "quotelink removed",
			in:   `<a href="#p123" class="quotelink">&gt;&gt;123</a><br>nice`,
			want: "nice",
		},
		{
			name: "greentext",
			in:   `<span class="quote">&gt;be me</span><br>post`,
			want: "<font color='#789922'>&gt;be me</font><br>post",
		},
		{
			name: "other markup escaped away",
			in:   `<b>bold</b> &amp; <script>x</script>`,
			want: "bold &amp; x",
		},
		{name: "empty", in: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Caption(tc.in))
		})
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText(`<span class="quote">&gt;implying</span><br>it&#039;s <wbr>fine`)

	assert.Equal(t, ">implying\nit's fine", got)
}

func TestExcerptTruncates(t *testing.T) {
	long := strings.Repeat("ж", ExcerptLength+50)

	got := Excerpt(long)

	assert.Equal(t, ExcerptLength, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, "short", Excerpt("<p>short</p>"))
}
