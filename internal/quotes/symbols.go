package quotes

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ScrapeSymbols downloads the S&P 500 constituents page and extracts its
// ticker symbols
func (c *Client) ScrapeSymbols(ctx context.Context, pageURL string) ([]string, error) {
	resp, err := c.get(ctx, pageURL, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return ParseSymbols(resp.Body)
}

// ParseSymbols reads the first column of the table with id "constituents".
// Class-share dots become dashes ("BRK.B" -> "BRK-B") to match quote APIs.
func ParseSymbols(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := findByID(doc, "table", "constituents")
	if table == nil {
		return nil, fmt.Errorf("constituents table: %w", ErrNoSymbols)
	}

	var symbols []string
	seen := make(map[string]bool)
	walk(table, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "tr" {
			return true
		}
		cell := firstCell(n)
		if cell == nil {
			return false
		}
		sym := strings.ReplaceAll(strings.TrimSpace(textOf(cell)), ".", "-")
		if sym != "" && !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, sym)
		}
		return false
	})

	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	return symbols, nil
}

// walk visits n depth first; fn returning false skips the node's children
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findByID(root *html.Node, tag, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && n.Data == tag {
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == id {
					found = n
					return false
				}
			}
		}
		return true
	})
	return found
}

// firstCell returns the row's first td, or nil for header rows
func firstCell(tr *html.Node) *html.Node {
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Data == "td" {
			return c
		}
		return nil
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}
