package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultMaxHTMLBytes bounds cleaned page snapshots so they fit in a
// model context window with room left for the prompt.
const DefaultMaxHTMLBytes = 30000

const truncationMarker = "..."

// CleanedHTML is a cleaned page snapshot with its metadata.
type CleanedHTML struct {
	HTML        string
	Title       string
	Description string
	Truncated   bool
}

// CleanHTML parses raw page HTML and rebuilds it with scripts, styles,
// hidden elements, and other noise removed, preserving the semantic
// structure and the attributes useful for element targeting. Output is
// capped at maxBytes; pass 0 to use DefaultMaxHTMLBytes.
func CleanHTML(rawHTML string, maxBytes int) (*CleanedHTML, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxHTMLBytes
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := &CleanedHTML{
		Title:       pageTitle(doc),
		Description: metaDescription(doc),
	}

	c := &cleaner{maxBytes: maxBytes}
	c.walk(doc, 0)

	result.HTML = c.builder.String()
	result.Truncated = c.truncated
	return result, nil
}

// cleaner rebuilds a parsed document into a compact HTML snapshot,
// tracking the byte budget through its builder.
type cleaner struct {
	builder   strings.Builder
	maxBytes  int
	truncated bool
}

func (c *cleaner) walk(n *html.Node, depth int) {
	if c.truncated {
		return
	}
	if c.builder.Len() >= c.maxBytes {
		c.truncated = true
		return
	}

	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		c.text(n)
	case html.ElementNode:
		tagName := strings.ToLower(n.Data)
		if isSkippedElement(tagName) || isHiddenElement(n) {
			return
		}
		c.element(n, tagName, depth)
	default:
		// Document and fragment nodes contribute children only.
		c.children(n, depth)
	}
}

func (c *cleaner) text(n *html.Node) {
	text := strings.TrimSpace(n.Data)
	if text == "" {
		return
	}

	remaining := c.maxBytes - c.builder.Len()
	if len(text) > remaining {
		c.builder.WriteString(truncateUTF8(text, remaining))
		c.builder.WriteString(truncationMarker)
		c.truncated = true
		return
	}
	c.builder.WriteString(text)
}

func (c *cleaner) element(n *html.Node, tagName string, depth int) {
	// Indent block elements for readability
	if depth > 0 && isBlockElement(tagName) {
		c.builder.WriteString("\n")
		c.builder.WriteString(strings.Repeat("  ", depth))
	}

	c.builder.WriteString("<")
	c.builder.WriteString(tagName)
	for _, attr := range n.Attr {
		if keepAttribute(tagName, attr.Key) {
			fmt.Fprintf(&c.builder, ` %s="%s"`, strings.ToLower(attr.Key), html.EscapeString(attr.Val))
		}
	}
	c.builder.WriteString(">")

	c.children(n, depth+1)

	if !isVoidElement(tagName) {
		if isBlockElement(tagName) {
			c.builder.WriteString("\n")
			c.builder.WriteString(strings.Repeat("  ", depth))
		}
		c.builder.WriteString("</")
		c.builder.WriteString(tagName)
		c.builder.WriteString(">")
	}
}

func (c *cleaner) children(n *html.Node, depth int) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth)
		if c.truncated {
			return
		}
	}
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// isSkippedElement returns true for elements that carry no visible page
// content. The head is dropped too since its title and description are
// extracted separately.
func isSkippedElement(tagName string) bool {
	skipped := map[string]bool{
		"head":     true,
		"script":   true,
		"style":    true,
		"noscript": true,
		"iframe":   true,
		"embed":    true,
		"object":   true,
		"svg":      true,
		"template": true,
	}
	return skipped[tagName]
}

// isHiddenElement returns true for elements hidden from the rendered
// page, which a plan could never interact with.
func isHiddenElement(n *html.Node) bool {
	var inputType string
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		val := strings.ToLower(strings.TrimSpace(attr.Val))
		switch key {
		case "hidden":
			return true
		case "aria-hidden":
			if val == "true" {
				return true
			}
		case "type":
			inputType = val
		case "style":
			style := strings.ReplaceAll(val, " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return strings.ToLower(n.Data) == "input" && inputType == "hidden"
}

// isBlockElement returns true for block-level elements (for formatting)
func isBlockElement(tagName string) bool {
	blocks := map[string]bool{
		"div":        true,
		"p":          true,
		"section":    true,
		"article":    true,
		"header":     true,
		"footer":     true,
		"nav":        true,
		"main":       true,
		"aside":      true,
		"h1":         true,
		"h2":         true,
		"h3":         true,
		"h4":         true,
		"h5":         true,
		"h6":         true,
		"ul":         true,
		"ol":         true,
		"li":         true,
		"table":      true,
		"tr":         true,
		"td":         true,
		"th":         true,
		"form":       true,
		"fieldset":   true,
		"blockquote": true,
		"pre":        true,
	}
	return blocks[tagName]
}

// isVoidElement returns true for self-closing elements
func isVoidElement(tagName string) bool {
	voids := map[string]bool{
		"area":   true,
		"base":   true,
		"br":     true,
		"col":    true,
		"embed":  true,
		"hr":     true,
		"img":    true,
		"input":  true,
		"link":   true,
		"meta":   true,
		"param":  true,
		"source": true,
		"track":  true,
		"wbr":    true,
	}
	return voids[tagName]
}

// keepAttribute returns true for attributes worth carrying into the
// snapshot, either for element targeting or for content analysis.
func keepAttribute(tagName, attrName string) bool {
	attrName = strings.ToLower(attrName)

	switch attrName {
	case "id", "class", "role", "title":
		return true
	}

	// aria-* and data-* attributes are common selector targets
	if strings.HasPrefix(attrName, "aria-") || strings.HasPrefix(attrName, "data-") {
		return true
	}

	switch tagName {
	case "a":
		return attrName == "href" || attrName == "target"
	case "img":
		return attrName == "src" || attrName == "alt"
	case "input", "textarea", "select":
		return attrName == "name" || attrName == "type" || attrName == "placeholder" || attrName == "value"
	case "option":
		return attrName == "value" || attrName == "selected"
	case "button":
		return attrName == "type" || attrName == "name"
	case "form":
		return attrName == "action" || attrName == "method"
	case "label":
		return attrName == "for"
	case "table":
		return attrName == "summary"
	}
	return false
}

// pageTitle extracts the page title from the document
func pageTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if title != "" {
				return
			}
		}
	}
	traverse(doc)
	return title
}

// metaDescription extracts the meta description from the document
func metaDescription(doc *html.Node) string {
	var description string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var isDescription bool
			var content string
			for _, attr := range n.Attr {
				if attr.Key == "name" && attr.Val == "description" {
					isDescription = true
				}
				if attr.Key == "content" {
					content = attr.Val
				}
			}
			if isDescription && content != "" {
				description = strings.TrimSpace(content)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
			if description != "" {
				return
			}
		}
	}
	traverse(doc)
	return description
}
