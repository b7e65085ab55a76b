// internal/bridge/dom.go
package bridge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// NodePosition selects where AppendNode inserts markup relative to the target.
type NodePosition int

const (
	BeforeStart NodePosition = iota
	AfterStart
	BeforeEnd
	AfterEnd
)

// String returns the insertAdjacentHTML keyword for the position.
func (p NodePosition) String() string {
	switch p {
	case BeforeStart:
		return "beforebegin"
	case AfterStart:
		return "afterbegin"
	case AfterEnd:
		return "afterend"
	default:
		return "beforeend"
	}
}

type targetKind int

const (
	targetID targetKind = iota
	targetClass
	targetTag
)

// Target addresses elements in the live DOM: a single element by id, or every
// element matching a class or tag name.
type Target struct {
	kind targetKind
	name string
}

// ByID targets the element with the given id.
func ByID(id string) Target { return Target{kind: targetID, name: id} }

// ByClass targets every element carrying the class.
func ByClass(class string) Target { return Target{kind: targetClass, name: class} }

// ByTagName targets every element with the tag name.
func ByTagName(tag string) Target { return Target{kind: targetTag, name: tag} }

func (t Target) String() string {
	switch t.kind {
	case targetClass:
		return "class:" + t.name
	case targetTag:
		return "tag:" + t.name
	default:
		return "id:" + t.name
	}
}

func (t Target) lookup() string {
	switch t.kind {
	case targetClass:
		return fmt.Sprintf("document.getElementsByClassName('%s')", t.name)
	case targetTag:
		return fmt.Sprintf("document.getElementsByTagName('%s')", t.name)
	default:
		return fmt.Sprintf("document.getElementById('%s')", t.name)
	}
}

// loopVars names the collection and element variables used by the generated
// loops. Page scripts in the wild read these globals, so they stay fixed.
func (t Target) loopVars() (collection, element string) {
	if t.kind == targetTag {
		return "availableTags", "availableTag"
	}
	return "availableClasses", "availableClass"
}

// apply builds a statement that runs member (e.g. "style.color = 'red';") on
// every element addressed by t.
func (t Target) apply(member string) string {
	if t.kind == targetID {
		return t.lookup() + "." + member
	}
	collection, element := t.loopVars()
	return fmt.Sprintf("var %s = %s; [].forEach.call(%s, function (%s) {%s.%s})",
		collection, t.lookup(), collection, element, element, member)
}

// StyleProperty converts a hyphenated CSS property to its script form. Only
// the first hyphen is folded: "background-color" becomes "backgroundColor"
// while "border-top-color" becomes "borderTop-color".
func StyleProperty(property string) string {
	i := strings.IndexByte(property, '-')
	if i == -1 {
		return property
	}
	rest := property[i+1:]
	if rest == "" {
		return property[:i]
	}
	r, size := utf8.DecodeRuneInString(rest)
	return property[:i] + strings.ToUpper(string(r)) + rest[size:]
}

// SetCSSScript assigns an inline style property on the target.
func SetCSSScript(t Target, property, value string) string {
	return t.apply(fmt.Sprintf("style.%s = '%s';", StyleProperty(property), value))
}

// SetHTMLAttributeScript assigns an element property (innerHTML, src, ...) on the target.
func SetHTMLAttributeScript(t Target, attribute, value string) string {
	return t.apply(fmt.Sprintf("%s = '%s';", attribute, value))
}

// SetInnerHTMLScript replaces the inner HTML of the target.
func SetInnerHTMLScript(t Target, value string) string {
	return SetHTMLAttributeScript(t, "innerHTML", value)
}

// SetImageSourceScript replaces the src of the target.
func SetImageSourceScript(t Target, src string) string {
	return SetHTMLAttributeScript(t, "src", src)
}

// AppendNodeScript inserts markup at pos relative to the target.
func AppendNodeScript(t Target, markup string, pos NodePosition) string {
	return t.apply(fmt.Sprintf("insertAdjacentHTML('%s', '%s');", pos, markup))
}

// RemoveNodeScript removes the target element, or every matching element.
func RemoveNodeScript(t Target) string {
	if t.kind == targetID {
		return t.lookup() + ".remove();"
	}
	collection, _ := t.loopVars()
	return fmt.Sprintf("var %s = %s; while(%s.length > 0){%s[0].remove();}",
		collection, t.lookup(), collection, collection)
}
