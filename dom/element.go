// Package dom is a small declarative element-tree builder with event binding,
// mounted into a headless HTML document.
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Observable is anything that reports changes, such as *signal.Mutable
type Observable interface {
	Subscribe(fn func()) (unsubscribe func())
}

// Element describes a node to be mounted. Builder methods return the receiver
// so trees can be written as chained expressions.
type Element struct {
	tag      string
	attrs    []html.Attribute
	classes  []string
	ref      string
	text     string
	dyn      *dynText
	children []*Element
	onClick  func()
}

type dynText struct {
	source Observable
	text   func() string
}

// El starts an element with the given tag name
func El(tag string) *Element {
	return &Element{tag: strings.ToLower(tag)}
}

// Div, Span and Button are shorthands for El with that tag
func Div() *Element    { return El("div") }
func Span() *Element   { return El("span") }
func Button() *Element { return El("button") }

// Class adds a CSS class
func (e *Element) Class(name string) *Element {
	e.classes = append(e.classes, name)
	return e
}

// Attr sets an attribute, replacing an earlier value for key
func (e *Element) Attr(key, val string) *Element {
	for i := range e.attrs {
		if e.attrs[i].Key == key {
			e.attrs[i].Val = val
			return e
		}
	}
	e.attrs = append(e.attrs, html.Attribute{Key: key, Val: val})
	return e
}

// Ref names the element so a Document can find it after mounting.
// It is rendered as a data-ref attribute.
func (e *Element) Ref(name string) *Element {
	e.ref = name
	return e.Attr("data-ref", name)
}

// Text sets static text content
func (e *Element) Text(s string) *Element {
	e.text = s
	e.dyn = nil
	return e
}

// DynText sets text content that is recomputed with text whenever source changes
func (e *Element) DynText(source Observable, text func() string) *Element {
	e.dyn = &dynText{source: source, text: text}
	e.text = ""
	return e
}

// Child appends children
func (e *Element) Child(children ...*Element) *Element {
	e.children = append(e.children, children...)
	return e
}

// OnClick binds fn to user clicks on the element
func (e *Element) OnClick(fn func()) *Element {
	e.onClick = fn
	return e
}
