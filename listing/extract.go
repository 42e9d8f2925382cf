package listing

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	listingID        = "results-listing"
	linkClass        = "item__link"
	titleClass       = "item__title"
	priceClass       = "s-item__price"
	productTypeClass = "LIGHT_HIGHLIGHT"
)

// Listing represents a single search result
type Listing struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Price string `json:"price"`
}

// Record returns CSV record
func (l *Listing) Record() []string {
	return []string{l.URL, l.Title, l.Price}
}

// Extract parses a search result page and returns its listings in document order.
// Listings without a link are skipped.
func Extract(body io.Reader) ([]*Listing, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	var ret []*Listing
	walk(doc, func(node *html.Node) bool {
		if node.DataAtom != atom.Li || !attrContains(node, "id", listingID) {
			return true
		}
		if listing := extractListing(node); listing != nil {
			ret = append(ret, listing)
		}
		return false
	})
	return ret, nil
}

func extractListing(item *html.Node) *Listing {
	var href string
	var titles, productTypes, prices []string
	walk(item, func(node *html.Node) bool {
		switch {
		case node.DataAtom == atom.A && attrContains(node, "class", linkClass):
			if href == "" {
				href = attr(node, "href")
			}
		case node.DataAtom == atom.H3 && attrContains(node, "class", titleClass):
			titles = append(titles, text(node)...)
			for child := node.FirstChild; child != nil; child = child.NextSibling {
				if child.DataAtom == atom.Span && attr(child, "class") == productTypeClass {
					productTypes = append(productTypes, ownText(child)...)
				}
			}
			return false
		case node.DataAtom == atom.Span && attrContains(node, "class", priceClass):
			prices = append(prices, text(node)...)
			return false
		}
		return true
	})
	if href == "" {
		return nil
	}
	title := normalize(titles)
	if productType := strings.Join(productTypes, ""); productType != "" {
		title = strings.TrimSpace(strings.ReplaceAll(title, productType, ""))
	}
	return &Listing{URL: href, Title: title, Price: normalize(prices)}
}

// walk visits node and its descendants depth first, visit returns false to skip children
func walk(node *html.Node, visit func(node *html.Node) bool) {
	if node.Type == html.ElementNode && !visit(node) {
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		walk(child, visit)
	}
}

// text returns all descendant text nodes
func text(node *html.Node) []string {
	var ret []string
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			ret = append(ret, n.Data)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(node)
	return ret
}

// ownText returns direct text children
func ownText(node *html.Node) []string {
	var ret []string
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			ret = append(ret, child.Data)
		}
	}
	return ret
}

// normalize joins fragments and collapses whitespace runs
func normalize(fragments []string) string {
	return strings.Join(strings.Fields(strings.Join(fragments, " ")), " ")
}

func attr(node *html.Node, key string) string {
	for _, attribute := range node.Attr {
		if attribute.Key == key {
			return attribute.Val
		}
	}
	return ""
}

func attrContains(node *html.Node, key, fragment string) bool {
	return strings.Contains(attr(node, key), fragment)
}
