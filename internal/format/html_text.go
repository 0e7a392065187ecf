// Package format renders HTML email bodies as plain text for the
// text/plain alternative part.
package format

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Converter handles document format conversions.
type Converter struct{}

// HTML2Text renders HTML as readable plain text. Scripts, styles and the
// document head are dropped, block elements become line breaks, list items
// become "- " bullets, table cells are joined with " | " and links keep
// their target in parentheses.
func (c Converter) HTML2Text(raw []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("html.Parse failed: %w", err)
	}

	w := &textWriter{}
	w.render(doc)

	return strings.TrimSpace(w.b.String()), nil
}

var skippedElements = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"div": true, "dl": true, "fieldset": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "main": true,
	"nav": true, "ol": true, "p": true, "section": true, "table": true,
	"ul": true,
}

type textWriter struct {
	b        strings.Builder
	newlines int
	space    bool
	pre      int
}

func (w *textWriter) render(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.textNode(n.Data)
		return
	case html.ElementNode:
	default:
		w.renderChildren(n)
		return
	}

	if skippedElements[n.Data] {
		return
	}

	switch {
	case n.Data == "br":
		w.b.WriteByte('\n')
		w.newlines++
		w.space = false

	case n.Data == "hr":
		w.lineBreak(2)
		w.write("----")
		w.lineBreak(2)

	case n.Data == "pre":
		w.lineBreak(2)
		w.pre++
		w.renderChildren(n)
		w.pre--
		w.lineBreak(2)

	case n.Data == "li":
		w.lineBreak(1)
		w.write("- ")
		w.renderChildren(n)
		w.lineBreak(1)

	case n.Data == "tr", n.Data == "dt", n.Data == "dd":
		w.lineBreak(1)
		w.renderChildren(n)
		w.lineBreak(1)

	case n.Data == "td", n.Data == "th":
		if isCell(prevElement(n)) {
			w.space = true
			w.write("|")
			w.space = true
		}
		w.renderChildren(n)

	case n.Data == "a":
		w.renderChildren(n)
		w.linkTarget(n)

	case blockElements[n.Data]:
		w.lineBreak(2)
		w.renderChildren(n)
		w.lineBreak(2)

	default:
		w.renderChildren(n)
	}
}

func (w *textWriter) renderChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.render(c)
	}
}

func (w *textWriter) textNode(data string) {
	if w.pre > 0 {
		w.write(data)
		w.newlines = len(data) - len(strings.TrimRight(data, "\n"))
		return
	}

	words := strings.Fields(data)
	if len(words) == 0 {
		if data != "" {
			w.space = true
		}
		return
	}

	if first, _ := utf8.DecodeRuneInString(data); unicode.IsSpace(first) {
		w.space = true
	}
	w.write(strings.Join(words, " "))
	if last, _ := utf8.DecodeLastRuneInString(data); unicode.IsSpace(last) {
		w.space = true
	}
}

func (w *textWriter) linkTarget(a *html.Node) {
	href := strings.TrimSpace(attr(a, "href"))
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}

	label := strings.TrimSpace(textContent(a))
	if label == href || label == strings.TrimPrefix(href, "mailto:") {
		return
	}

	w.space = true
	w.write("(" + href + ")")
}

func (w *textWriter) write(s string) {
	if s == "" {
		return
	}
	if w.space && w.newlines == 0 && w.b.Len() > 0 {
		w.b.WriteByte(' ')
	}
	w.space = false
	w.b.WriteString(s)
	w.newlines = 0
}

// lineBreak makes sure the output ends with at least n newlines.
func (w *textWriter) lineBreak(n int) {
	w.space = false
	if w.b.Len() == 0 {
		return
	}
	for w.newlines < n {
		w.b.WriteByte('\n')
		w.newlines++
	}
}

func isCell(n *html.Node) bool {
	return n != nil && (n.Data == "td" || n.Data == "th")
}

func prevElement(n *html.Node) *html.Node {
	for p := n.PrevSibling; p != nil; p = p.PrevSibling {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
