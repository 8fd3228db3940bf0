package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	selTable      = cascadia.MustCompile("table")
	selRow        = cascadia.MustCompile("tr")
	selMobileCell = cascadia.MustCompile("td p.visible-xs")
	selTD         = cascadia.MustCompile("td")
	selTH         = cascadia.MustCompile("th")
	selP          = cascadia.MustCompile("p")
	selSpan       = cascadia.MustCompile("span")
	selDiv        = cascadia.MustCompile("div")

	divContainerRe = regexp.MustCompile(`row|item|info`)
	divLabelRe     = regexp.MustCompile(`label|key|name|title`)
	divValueRe     = regexp.MustCompile(`value|data|content`)
)

// ParseTables extracts label/value pairs from the tables of a status
// page. There are at least three incompatible page-template generations
// in the wild, so each row is tried against a cascade of structural
// patterns and the extractor degrades to partial output rather than
// failing on an unrecognized layout. A second pass covers pages that use
// class-hinted div grids instead of tables.
func ParseTables(inputHTML string) map[string]string {
	data := map[string]string{}
	if inputHTML == "" {
		return data
	}
	doc, err := html.Parse(strings.NewReader(inputHTML))
	if err != nil {
		return data
	}

	for _, table := range cascadia.QueryAll(doc, selTable) {
		for _, row := range cascadia.QueryAll(table, selRow) {
			rowData := extractRow(row)
			if len(rowData) > 1 {
				addUnique(data, rowData[0], strings.ReplaceAll(rowData[1], "\n", ""))
			} else if len(rowData) == 1 {
				// Label-only rows are kept: some layouts put the value in
				// an adjacent row, and other fields key off the marker.
				addUnique(data, rowData[0], "")
			}
		}
	}

	for _, div := range cascadia.QueryAll(doc, selDiv) {
		if !divContainerRe.MatchString(attrVal(div, "class")) {
			continue
		}
		label := findByClass(div, divLabelRe)
		value := findByClass(div, divValueRe)
		if label == nil || value == nil {
			continue
		}
		labelText := nodeText(label)
		if labelText == "" {
			continue
		}
		if _, exists := data[labelText]; exists {
			continue
		}
		addUnique(data, labelText, strings.ReplaceAll(nodeText(value), "\n", ""))
	}

	return data
}

// extractRow tries the known row conventions in order and stops at the
// first one yielding at least two cell-like values.
func extractRow(row *html.Node) []string {
	// Pattern 1: nested mobile-view paragraphs (older firmware).
	var rowData []string
	for _, col := range cascadia.QueryAll(row, selMobileCell) {
		if text := nodeText(col); text != "" {
			rowData = append(rowData, text)
		}
	}
	if len(rowData) >= 2 {
		return rowData
	}

	// Pattern 2: direct td cells, preferring a nested p/span's text over
	// the cell's own text when both exist (newer firmware).
	rowData = nil
	for _, td := range cascadia.QueryAll(row, selTD) {
		var text string
		if inner := cascadia.Query(td, selP); inner != nil {
			text = nodeText(inner)
		} else if inner := cascadia.Query(td, selSpan); inner != nil {
			text = nodeText(inner)
		} else {
			text = nodeText(td)
		}
		if text != "" {
			rowData = append(rowData, text)
		}
	}
	if len(rowData) >= 2 {
		return rowData
	}

	// Pattern 3: th/td pair, label in the header cell.
	th := cascadia.Query(row, selTH)
	td := cascadia.Query(row, selTD)
	if th != nil && td != nil {
		if thText := nodeText(th); thText != "" {
			return []string{thText, nodeText(td)}
		}
	}

	return rowData
}

// addUnique stores value under key, disambiguating colliding labels with
// an incrementing numeric suffix ("SCC", "SCC2", "SCC3", ...) instead of
// overwriting. An existing empty-valued entry is considered vacant.
func addUnique(data map[string]string, key, value string) {
	unique := key
	for i := 2; ; i++ {
		if existing, ok := data[unique]; !ok || existing == "" {
			data[unique] = value
			return
		}
		unique = fmt.Sprintf("%s%d", key, i)
	}
}

// nodeText returns the stripped text content of a node, rendering <br>
// elements as newlines so multi-line cells keep their structure.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			return
		}
		if c.Type == html.ElementNode && c.DataAtom == atom.Br {
			b.WriteString("\n")
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// textLines returns the stripped text fragments of a node's subtree,
// one entry per non-empty text node.
func textLines(n *html.Node) []string {
	var lines []string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			if text := strings.TrimSpace(c.Data); text != "" {
				lines = append(lines, text)
			}
			return
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return lines
}

func attrVal(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// findByClass returns the first descendant element whose class attribute
// matches the pattern.
func findByClass(root *html.Node, pattern *regexp.Regexp) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n != root && n.Type == html.ElementNode && pattern.MatchString(attrVal(n, "class")) {
			found = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return found
}

// findByID returns the first descendant element whose id attribute
// matches the pattern.
func findByID(root *html.Node, pattern *regexp.Regexp) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n != root && n.Type == html.ElementNode && pattern.MatchString(attrVal(n, "id")) {
			found = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return found
}
