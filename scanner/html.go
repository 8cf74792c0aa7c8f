package scanner

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExcerptLength caps cached thread excerpts, in runes.
const ExcerptLength = 512

const greentextOpen = "<font color='#789922'>"

func parseFragment(s string) []*xhtml.Node {
	nodes, err := xhtml.ParseFragment(strings.NewReader(s), &xhtml.Node{
		Type:     xhtml.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return nil
	}
	return nodes
}

func hasClass(n *xhtml.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// PlainText reduces comment HTML to text. Line breaks survive as newlines.
func PlainText(com string) string {
	var sb strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		switch {
		case n.Type == xhtml.TextNode:
			sb.WriteString(n.Data)
		case n.Type == xhtml.ElementNode && n.DataAtom == atom.Br:
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range parseFragment(com) {
		walk(n)
	}
	return strings.TrimSpace(sb.String())
}

// Excerpt is the plain text of a comment truncated to ExcerptLength runes.
func Excerpt(com string) string {
	r := []rune(PlainText(com))
	if len(r) <= ExcerptLength {
		return string(r)
	}
	return strings.TrimSpace(string(r[:ExcerptLength-1])) + "…"
}

// Caption renders comment HTML for a status: quotelinks are dropped,
// greentext is colored, line breaks are kept and all other markup is
// reduced to escaped text.
func Caption(com string) string {
	var sb strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		switch n.Type {
		case xhtml.TextNode:
			sb.WriteString(html.EscapeString(n.Data))
			return
		case xhtml.ElementNode:
			switch {
			case n.DataAtom == atom.Br:
				sb.WriteString("<br>")
				return
			case n.DataAtom == atom.A && hasClass(n, "quotelink"):
				return
			case n.DataAtom == atom.Span && hasClass(n, "quote"):
				sb.WriteString(greentextOpen)
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				sb.WriteString("</font>")
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range parseFragment(com) {
		walk(n)
	}
	return trimBreaks(sb.String())
}

// removing a leading quotelink leaves a dangling <br>
func trimBreaks(s string) string {
	for {
		t := strings.TrimSpace(s)
		t = strings.TrimPrefix(t, "<br>")
		t = strings.TrimSuffix(t, "<br>")
		if t == s {
			return t
		}
		s = t
	}
}
