package validation

import (
	"bytes"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

func parseArtifact(data []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(data))
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
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

// walk visits n and its descendants depth-first.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func elementIDs(root *html.Node) map[string]bool {
	ids := make(map[string]bool)
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				ids[id] = true
			}
		}
	})
	return ids
}

func text(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

// amountCells returns the trimmed text of every table cell with class "amount".
func amountCells(root *html.Node) []string {
	var out []string
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "td" && hasClass(n, "amount") {
			out = append(out, strings.TrimSpace(text(n)))
		}
	})
	return out
}
