// Package xmlutil parses namespaced XML into a small element tree with
// optional accessors. Every accessor is safe to call on a nil *Element and
// returns the zero value, so lookups over absent blocks need no nil checks.
package xmlutil

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type Element struct {
	Name     xml.Name // Name.Space holds the resolved namespace URI
	attrs    []xml.Attr
	text     strings.Builder
	children []*Element
}

// Parse reads a whole document and returns its root element.
func Parse(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	var root *Element
	var stack []*Element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml parse: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name, attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("xml parse: empty document")
	}
	return root, nil
}

// Text returns the character data directly inside the element.
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	return e.text.String()
}

// Child returns the first child with the given namespace and local name.
func (e *Element) Child(space, local string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.children {
		if c.Name.Space == space && c.Name.Local == local {
			return c
		}
	}
	return nil
}

// All returns every child with the given namespace and local name, in
// document order.
func (e *Element) All(space, local string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.children {
		if c.Name.Space == space && c.Name.Local == local {
			out = append(out, c)
		}
	}
	return out
}

func (e *Element) ChildText(space, local string) string {
	return e.Child(space, local).Text()
}

// Attr returns the value of an unqualified attribute, or "".
func (e *Element) Attr(name string) string {
	if e == nil {
		return ""
	}
	for _, a := range e.attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
