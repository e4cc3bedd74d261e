package description

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"

	"github.com/nerrad567/gray-logic-upnp/internal/upnp"
)

// Element is one node of a parsed description document.
// Elements are never modified after Parse returns.
type Element struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Element
	text     string
}

// Document is a parsed description document.
type Document struct {
	Root *Element
}

// Parse reads an XML document into an element tree.
// Any syntax error, or a document with no root element, fails with
// upnp.ErrMalformedDescription.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Element
		stack []*Element
		text  [][]byte
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", upnp.ErrMalformedDescription, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name, Attrs: t.Copy().Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", upnp.ErrMalformedDescription)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
			text = append(text, nil)
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1] = append(text[len(text)-1], t...)
			}
		case xml.EndElement:
			// The decoder rejects mismatched end tags, so the stack is never empty here.
			el := stack[len(stack)-1]
			el.text = string(bytes.TrimSpace(text[len(text)-1]))
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: empty document", upnp.ErrMalformedDescription)
	}
	return &Document{Root: root}, nil
}

// ParseBytes parses an in-memory XML document.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

// Text returns the element's character data with surrounding whitespace removed.
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	return e.text
}

// Local returns the element's local name.
func (e *Element) Local() string {
	return e.Name.Local
}

// Child returns the first direct child with the given local name in any namespace.
func (e *Element) Child(local string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.Children {
		if c.Name.Local == local {
			return c
		}
	}
	return nil
}

// At follows a path of local names from e, taking the first match at each step.
// It returns nil if any step is missing.
func (e *Element) At(path ...string) *Element {
	cur := e
	for _, step := range path {
		cur = cur.Child(step)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// ChildText returns the trimmed text of the first child with the given local
// name, and whether that child exists.
func (e *Element) ChildText(local string) (string, bool) {
	c := e.Child(local)
	if c == nil {
		return "", false
	}
	return c.text, true
}

// ChildrenNS returns every element reached by following path from e, where
// each step must match both the namespace and the local name. Matches are
// returned in document order.
//
//	el.ChildrenNS(upnp.DeviceNamespace, "deviceList", "device")
func (e *Element) ChildrenNS(ns string, path ...string) []*Element {
	if e == nil || len(path) == 0 {
		return nil
	}
	set := []*Element{e}
	for _, step := range path {
		var next []*Element
		for _, el := range set {
			for _, c := range el.Children {
				if c.Name.Space == ns && c.Name.Local == step {
					next = append(next, c)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		set = next
	}
	return set
}

// Attr returns the value of the attribute with the given local name.
func (e *Element) Attr(local string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, a := range e.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}
