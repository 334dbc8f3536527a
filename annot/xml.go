package annot

import (
	"fmt"

	"github.com/beevik/etree"
)

// RenderXML renders the document as inline XML.
//
// Annotations of the given types (all types when none are given) become
// elements wrapping the text they cover, with features as attributes.
// An annotation that crosses the boundary of an enclosing one cannot be
// nested and is left out.
func RenderXML(doc *Document, types ...string) (string, error) {
	x := etree.NewDocument()
	root := x.CreateElement("Document")
	if doc.Name != "" {
		root.CreateAttr("name", doc.Name)
	}

	type open struct {
		el  *etree.Element
		end int
	}
	stack := []open{{el: root, end: len(doc.Text)}}
	cursor := 0

	emit := func(el *etree.Element, upTo int) {
		if upTo > cursor {
			el.CreateText(doc.Text[cursor:upTo])
			cursor = upTo
		}
	}
	closeTop := func() {
		top := stack[len(stack)-1]
		emit(top.el, top.end)
		stack = stack[:len(stack)-1]
	}

	for _, a := range doc.ByType(types...) {
		for len(stack) > 1 && stack[len(stack)-1].end <= a.Start {
			closeTop()
		}
		top := stack[len(stack)-1]
		if a.End > top.end || a.Start < cursor {
			continue
		}
		emit(top.el, a.Start)
		el := top.el.CreateElement(a.Type)
		for _, k := range sortedKeys(a.Features) {
			el.CreateAttr(k, fmt.Sprint(a.Features[k]))
		}
		stack = append(stack, open{el: el, end: a.End})
	}
	for len(stack) > 1 {
		closeTop()
	}
	emit(root, len(doc.Text))

	out, err := x.WriteToString()
	if err != nil {
		return "", fmt.Errorf("render %s: %w", doc.Name, err)
	}
	return out, nil
}
