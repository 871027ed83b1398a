package scraper

import (
	"strconv"
	"strings"

	"github.com/whatthedob/whatthedob-backend/internal/app/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseCampusOptions reads the campus picker into id -> name. Options
// with a blank, zero or non-numeric value are placeholders.
func ParseCampusOptions(page string) map[uint]string {
	campuses := make(map[uint]string)
	sel := findByID(parse(page), atom.Select, "selCampus")
	if sel == nil {
		return campuses
	}
	for _, opt := range children(sel, atom.Option) {
		value := strings.TrimSpace(attr(opt, "value"))
		id, err := strconv.ParseUint(value, 10, 0)
		if err != nil || id == 0 {
			continue
		}
		campuses[uint(id)] = text(opt)
	}
	return campuses
}

// ParseMealOptions reads the meal picker's option labels in page order.
func ParseMealOptions(page string) []string {
	meals := []string{}
	sel := findByID(parse(page), atom.Select, "selMeal")
	if sel == nil {
		return meals
	}
	for _, opt := range children(sel, atom.Option) {
		if name := text(opt); name != "" {
			meals = append(meals, name)
		}
	}
	return meals
}

// ParseMenuItems walks category headers and item blocks in document
// order. An item belongs to the nearest header above it; items before
// any header have an empty category.
func ParseMenuItems(page string) []model.SnapshotItem {
	items := []model.SnapshotItem{}
	category := ""

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.H2 && hasClass(n, "category-header"):
				category = text(n)
				return
			case n.DataAtom == atom.Div && hasClass(n, "menu-items"):
				items = append(items, parseItem(n, category))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(parse(page))
	return items
}

func parseItem(n *html.Node, category string) model.SnapshotItem {
	item := model.SnapshotItem{Category: category, Tags: []string{}}
	if link := first(n, atom.A); link != nil {
		item.Value = strings.TrimSpace(attr(link, "aria-label"))
	}
	for _, img := range all(n, atom.Img) {
		if tag := strings.TrimSpace(attr(img, "aria-label")); tag != "" {
			item.Tags = append(item.Tags, tag)
		}
	}
	return item
}

func parse(page string) *html.Node {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		// html.Parse only fails on reader errors.
		return &html.Node{Type: html.DocumentNode}
	}
	return doc
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func findByID(n *html.Node, a atom.Atom, id string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, a, id); found != nil {
			return found
		}
	}
	return nil
}

func first(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := first(c, a); found != nil {
			return found
		}
	}
	return nil
}

func all(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
		out = append(out, all(c, a)...)
	}
	return out
}

// children returns the direct element children of n matching a.
func children(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}
