// Package xmldom builds a small navigable element tree on top of the
// standard XML decoder. It exposes only the operations the feed
// extractor needs (descendant lookup, attributes, text content), so the
// underlying parser stays swappable.
package xmldom

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ParseError reports a structurally broken document. It carries the
// originating URL so a batch refresh can log which feed was skipped.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Element is one node of the parsed tree.
type Element struct {
	Tag      string
	Children []*Element

	attrs []xml.Attr
	nodes []node
}

// node is one ordered piece of element content: either character data
// or a child element. Keeping both in one sequence preserves document
// order for mixed content like inline markup inside a description.
type node struct {
	text  string
	child *Element
}

// Parse decodes body into an element tree rooted at the document
// element. The url is used for diagnostics only.
func Parse(body, url string) (*Element, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	// The body is already decoded text; declared charsets like
	// ISO-8859-1 must not make the parse fail.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		root  *Element
		stack []*Element
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{URL: url, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Tag: t.Name.Local, attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
				parent.nodes = append(parent.nodes, node{child: el})
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
				top := stack[len(stack)-1]
				top.nodes = append(top.nodes, node{text: string(t)})
			}
		}
	}

	if root == nil {
		return nil, &ParseError{URL: url, Err: fmt.Errorf("no root element")}
	}
	return root, nil
}

// Attr returns the value of the named attribute, or "".
func (e *Element) Attr(name string) string {
	for _, a := range e.attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Find returns the first descendant with the given tag in document
// order, or nil. The receiver itself is not considered.
func (e *Element) Find(tag string) *Element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
		if found := c.Find(tag); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant with the given tag in document order.
func (e *Element) FindAll(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
		out = append(out, c.FindAll(tag)...)
	}
	return out
}

// Text returns the concatenated character data of the element and all
// of its descendants, in document order.
func (e *Element) Text() string {
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *Element) writeText(b *strings.Builder) {
	for _, n := range e.nodes {
		if n.child != nil {
			n.child.writeText(b)
			continue
		}
		b.WriteString(n.text)
	}
}
