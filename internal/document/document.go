// Package document parses BC Laws act XML into a flat node arena and
// indexes its parts, divisions, sections and definitions.
package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind is a structural element of an act.
type Kind string

const (
	KindPart     Kind = "part"
	KindDivision Kind = "division"
	KindSection  Kind = "section"
)

const (
	elemNum        = "num"
	elemText       = "text"
	elemTerm       = "term"
	elemTitle      = "title"
	elemMarginal   = "marginalnote"
	elemDefinition = "definition"
)

// ErrEmptyDocument signals input without a root element.
var ErrEmptyDocument = errors.New("empty document")

// Node is one element in the arena. Children hold arena indices in document order.
type Node struct {
	Name     string
	ID       string
	Text     string
	Parent   int
	Children []int
}

// Document is a parsed act. Node 0 is the root element.
type Document struct {
	Nodes []Node
}

// Parse reads an act. Namespace prefixes are dropped from element names.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	doc := &Document{}
	var open []int
	var text [][]byte

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode act xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := -1
			if len(open) > 0 {
				parent = open[len(open)-1]
			}
			id := len(doc.Nodes)
			doc.Nodes = append(doc.Nodes, Node{Name: t.Name.Local, ID: attr(t, "id"), Parent: parent})
			if parent >= 0 {
				doc.Nodes[parent].Children = append(doc.Nodes[parent].Children, id)
			}
			open = append(open, id)
			text = append(text, nil)
		case xml.CharData:
			if len(open) > 0 {
				text[len(text)-1] = append(text[len(text)-1], t...)
			}
		case xml.EndElement:
			if len(open) == 0 {
				continue
			}
			id := open[len(open)-1]
			doc.Nodes[id].Text = strings.TrimSpace(string(text[len(text)-1]))
			open = open[:len(open)-1]
			text = text[:len(text)-1]
		}
	}

	if len(doc.Nodes) == 0 {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Walk visits nodes in document order using an explicit stack.
// Returning false from fn skips the node's subtree.
func (d *Document) Walk(fn func(id int, n *Node) bool) {
	if len(d.Nodes) == 0 {
		return
	}
	stack := []int{0}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &d.Nodes[id]
		if !fn(id, n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// child returns the text of the first direct child with the given name.
func (d *Document) child(n *Node, name string) (string, bool) {
	for _, c := range n.Children {
		if d.Nodes[c].Name == name {
			return d.Nodes[c].Text, true
		}
	}
	return "", false
}

// Title returns the act title.
func (d *Document) Title() string {
	t, _ := d.child(&d.Nodes[0], elemTitle)
	return t
}

// Index maps element numbers to ids for one kind, and keeps the numbers in document order.
type Index struct {
	IDs  map[string]string
	Nums []string
}

// Lookup returns the element id for a number.
func (ix Index) Lookup(num string) (string, bool) {
	id, ok := ix.IDs[num]
	return id, ok
}

// Index collects every element of kind that carries a number.
// Elements without an id are listed in Nums but not mapped.
func (d *Document) Index(kind Kind) Index {
	ix := Index{IDs: make(map[string]string)}
	d.Walk(func(_ int, n *Node) bool {
		if n.Name != string(kind) {
			return true
		}
		num, ok := d.child(n, elemNum)
		if !ok || num == "" {
			return true
		}
		ix.Nums = append(ix.Nums, num)
		if n.ID != "" {
			ix.IDs[num] = n.ID
		}
		return true
	})
	return ix
}

// Contents renders a table of contents in the "Part 1 Heading" / "12 Heading" form.
func (d *Document) Contents() []string {
	var lines []string
	d.Walk(func(_ int, n *Node) bool {
		num, _ := d.child(n, elemNum)
		switch Kind(n.Name) {
		case KindPart:
			heading, _ := d.child(n, elemText)
			lines = append(lines, joinNonEmpty("Part", num, heading))
		case KindDivision:
			heading, _ := d.child(n, elemText)
			lines = append(lines, joinNonEmpty("Division", num, heading))
		case KindSection:
			heading, _ := d.child(n, elemMarginal)
			lines = append(lines, joinNonEmpty(num, heading))
			// Sections hold subsections, not further structure.
			return false
		}
		return true
	})
	return lines
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Definition is one defined term.
type Definition struct {
	Section string
	Term    string
	Text    string
	ID      string
}

// Definitions lists the terms defined directly in sections, in document order.
func (d *Document) Definitions() []Definition {
	var defs []Definition
	d.Walk(func(_ int, n *Node) bool {
		if n.Name != string(KindSection) {
			return true
		}
		num, _ := d.child(n, elemNum)
		for _, c := range n.Children {
			def := &d.Nodes[c]
			if def.Name != elemDefinition {
				continue
			}
			for _, tc := range def.Children {
				t := &d.Nodes[tc]
				if t.Name != elemText {
					continue
				}
				term, _ := d.child(t, elemTerm)
				defs = append(defs, Definition{
					Section: num,
					Term:    term,
					Text:    t.Text,
					ID:      def.ID,
				})
				break
			}
		}
		return false
	})
	return defs
}

// Definition finds a term.
func (d *Document) Definition(term string) (Definition, bool) {
	for _, def := range d.Definitions() {
		if def.Term == term {
			return def, true
		}
	}
	return Definition{}, false
}
