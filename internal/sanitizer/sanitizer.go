// Package sanitizer reduces a uiautomator window dump to the elements a
// user could act on.
package sanitizer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Interaction hints attached to each element.
const (
	HintTap  = "tap"
	HintType = "type"
	HintRead = "read"
)

// ErrEmptyDump is returned for a dump with no hierarchy in it.
var ErrEmptyDump = errors.New("ui dump contains no hierarchy")

// boundsRegex matches uiautomator bounds, e.g. "[0,63][1080,210]".
var boundsRegex = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

// Rect is a screen rectangle in device pixels.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (int, int) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Contains reports whether (x, y) lies inside the rectangle, edges included.
func (r Rect) Contains(x, y int) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Union returns the smallest rectangle covering both.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		Left:   min(r.Left, o.Left),
		Top:    min(r.Top, o.Top),
		Right:  max(r.Right, o.Right),
		Bottom: max(r.Bottom, o.Bottom),
	}
}

// Element is one interactive entry of the window hierarchy.
type Element struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text,omitempty"`
	Type      string `json:"type"`
	Bounds    string `json:"bounds"`
	Center    [2]int `json:"center"`
	Clickable bool   `json:"clickable"`
	Action    string `json:"action"`

	Rect Rect `json:"-"`
}

// ExtractInteractiveElements parses a uiautomator XML dump and returns the
// clickable, editable or labelled nodes in document order.
func ExtractInteractiveElements(xmlText string) ([]Element, error) {
	return Extract(xmlText, 0)
}

// Extract is ExtractInteractiveElements with an upper bound on the number of
// returned elements. A limit of zero or less means no bound.
func Extract(xmlText string, limit int) ([]Element, error) {
	if strings.TrimSpace(xmlText) == "" {
		return nil, ErrEmptyDump
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlText); err != nil {
		return nil, fmt.Errorf("failed to parse ui dump: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrEmptyDump
	}

	elements := make([]Element, 0, 32)
	walk(root, &elements, limit)
	return elements, nil
}

// walk visits the tree depth first, collecting candidates until limit is reached.
func walk(node *etree.Element, out *[]Element, limit int) {
	if node == nil || (limit > 0 && len(*out) >= limit) {
		return
	}
	if node.Tag == "node" {
		if el, ok := toElement(node); ok {
			*out = append(*out, el)
		}
	}
	for _, child := range node.ChildElements() {
		if limit > 0 && len(*out) >= limit {
			return
		}
		walk(child, out, limit)
	}
}

func toElement(node *etree.Element) (Element, bool) {
	attr := func(key string) string { return strings.TrimSpace(node.SelectAttrValue(key, "")) }

	if attr("enabled") == "false" {
		return Element{}, false
	}

	class := attr("class")
	clickable := attr("clickable") == "true" || attr("long-clickable") == "true" || attr("checkable") == "true"
	editable := strings.Contains(class, "EditText") || (attr("focusable") == "true" && attr("focused") == "true" && strings.Contains(class, "Edit"))
	label := attr("text")
	if label == "" {
		label = attr("content-desc")
	}

	if !clickable && !editable && label == "" {
		return Element{}, false
	}

	raw := attr("bounds")
	rect, err := ParseBounds(raw)
	if err != nil || rect.Empty() {
		return Element{}, false
	}

	action := HintRead
	switch {
	case editable:
		action = HintType
	case clickable:
		action = HintTap
	}

	cx, cy := rect.Center()
	return Element{
		ID:        attr("resource-id"),
		Text:      label,
		Type:      shortClass(class),
		Bounds:    raw,
		Center:    [2]int{cx, cy},
		Clickable: clickable,
		Action:    action,
		Rect:      rect,
	}, true
}

// ParseBounds parses the uiautomator "[x1,y1][x2,y2]" bounds notation.
func ParseBounds(raw string) (Rect, error) {
	m := boundsRegex.FindStringSubmatch(raw)
	if m == nil {
		return Rect{}, fmt.Errorf("malformed bounds %q", raw)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Rect{}, fmt.Errorf("malformed bounds %q: %w", raw, err)
		}
		v[i] = n
	}
	return Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

// shortClass keeps the simple class name, android.widget.Button -> Button.
func shortClass(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}
