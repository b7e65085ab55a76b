// internal/htmlnode/node.go
package htmlnode

import (
	"strings"
)

// Node is a single markup element built from native code. It owns its
// children; serialization through Get is a pure function of the current state.
type Node struct {
	tagName   string
	innerHTML string

	// Attributes and CSS rules keep first-insertion order so repeated
	// serialization yields the same string.
	attrKeys []string
	attrs    map[string]string
	cssKeys  []string
	css      map[string]string

	children []*Node
}

// New creates an empty node for the given tag.
func New(tagName string) *Node {
	return &Node{
		tagName: tagName,
		attrs:   make(map[string]string),
		css:     make(map[string]string),
	}
}

// NewWithInner creates a node with literal inner content.
func NewWithInner(tagName, innerHTML string) *Node {
	n := New(tagName)
	n.innerHTML = innerHTML
	return n
}

// TagName returns the tag the node was created with.
func (n *Node) TagName() string { return n.tagName }

// InnerHTML returns the raw inner content.
func (n *Node) InnerHTML() string { return n.innerHTML }

// SetInnerHTML replaces the raw inner content. Children are left untouched.
func (n *Node) SetInnerHTML(innerHTML string) { n.innerHTML = innerHTML }

// SetAttribute adds or overwrites an attribute.
func (n *Node) SetAttribute(name, value string) {
	if _, exists := n.attrs[name]; !exists {
		n.attrKeys = append(n.attrKeys, name)
	}
	n.attrs[name] = value
}

// Attribute returns the attribute value and whether it is set.
func (n *Node) Attribute(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// SetCSS adds or overwrites an inline CSS declaration.
func (n *Node) SetCSS(property, value string) {
	if _, exists := n.css[property]; !exists {
		n.cssKeys = append(n.cssKeys, property)
	}
	n.css[property] = value
}

// CSS returns the inline CSS value for property and whether it is set.
func (n *Node) CSS(property string) (string, bool) {
	v, ok := n.css[property]
	return v, ok
}

// SetID is shorthand for SetAttribute("id", id).
func (n *Node) SetID(id string) { n.SetAttribute("id", id) }

// ID returns the id attribute, or "" when unset.
func (n *Node) ID() string { return n.attrs["id"] }

// SetClass is shorthand for SetAttribute("class", class).
func (n *Node) SetClass(class string) { n.SetAttribute("class", class) }

// Class returns the class attribute, or "" when unset.
func (n *Node) Class() string { return n.attrs["class"] }

// AppendChild adds child as the last child of n.
func (n *Node) AppendChild(child *Node) {
	if child == nil {
		return
	}
	n.children = append(n.children, child)
}

// RemoveChildAt removes the child at index i. Out of range indexes are ignored.
func (n *Node) RemoveChildAt(i int) {
	if i < 0 || i >= len(n.children) {
		return
	}
	n.children = append(n.children[:i], n.children[i+1:]...)
}

// RemoveChild removes the first occurrence of child.
func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.RemoveChildAt(i)
			return
		}
	}
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Get serializes the node and its subtree.
//
// The style attribute keeps its trailing "; " separator, and a node without
// inner content and children always self-closes, even when it carries
// attributes. Both are relied on by existing page scripts.
func (n *Node) Get() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	b.WriteString("<")
	b.WriteString(n.tagName)
	for _, k := range n.attrKeys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(n.attrs[k])
		b.WriteString(`"`)
	}
	if len(n.cssKeys) > 0 {
		b.WriteString(` style="`)
		for _, k := range n.cssKeys {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(n.css[k])
			b.WriteString("; ")
		}
		b.WriteString(`"`)
	}

	if n.innerHTML == "" && len(n.children) == 0 {
		b.WriteString("/>")
		return
	}

	b.WriteString(">")
	b.WriteString(n.innerHTML)
	for _, c := range n.children {
		c.write(b)
	}
	b.WriteString("</")
	b.WriteString(n.tagName)
	b.WriteString(">")
}
