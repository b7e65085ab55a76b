// internal/htmlnode/parse.go
package htmlnode

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse builds a Node tree from an HTML fragment. The first element in the
// fragment becomes the root. Text directly inside an element is collected into
// its inner HTML; element children become child nodes. Inline style
// declarations are split back into CSS rules.
func Parse(markup string) (*Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html fragment: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return convert(n), nil
		}
	}
	return nil, fmt.Errorf("html fragment contains no element")
}

func convert(src *html.Node) *Node {
	n := New(src.Data)
	for _, a := range src.Attr {
		if a.Key == "style" {
			parseStyle(n, a.Val)
			continue
		}
		n.SetAttribute(a.Key, a.Val)
	}

	var text strings.Builder
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text.WriteString(c.Data)
		case html.ElementNode:
			n.AppendChild(convert(c))
		}
	}
	n.innerHTML = strings.TrimSpace(text.String())
	return n
}

func parseStyle(n *Node, style string) {
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		if prop == "" {
			continue
		}
		n.SetCSS(prop, strings.TrimSpace(val))
	}
}
