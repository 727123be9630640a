package browser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Markup summarises a rendered document for blank-screen and progress checks.
type Markup struct {
	// BodyLength is the character count of the serialized inner HTML of <body>
	BodyLength int

	// Text is the visible text with whitespace collapsed to single spaces
	Text string

	// TextLength is the character count of Text
	TextLength int

	// Title is the document title, if any
	Title string
}

// AnalyzeHTML parses a serialized document and measures its body markup and
// visible text. Script, style and other non-rendered elements are excluded
// from the text.
func AnalyzeHTML(rawHTML string) (Markup, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return Markup{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var m Markup
	m.Title = extractTitle(doc)

	body := findElement(doc, "body")
	if body == nil {
		return m, nil
	}

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return m, fmt.Errorf("failed to render body: %w", err)
		}
	}
	m.BodyLength = utf8.RuneCount(buf.Bytes())

	var words []string
	collectText(body, &words)
	m.Text = strings.Join(words, " ")
	m.TextLength = utf8.RuneCountInString(m.Text)

	return m, nil
}

// VisibleText returns only the collapsed visible text of a document.
func VisibleText(rawHTML string) (string, error) {
	m, err := AnalyzeHTML(rawHTML)
	if err != nil {
		return "", err
	}
	return m.Text, nil
}

// collectText gathers whitespace-separated words from rendered text nodes.
func collectText(n *html.Node, words *[]string) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && (isSkippedElement(strings.ToLower(n.Data)) || isHidden(n)) {
		return
	}
	if n.Type == html.TextNode {
		*words = append(*words, strings.Fields(n.Data)...)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, words)
	}
}

// isSkippedElement returns true for elements whose text is never rendered
func isSkippedElement(tagName string) bool {
	skipped := map[string]bool{
		"script":   true,
		"style":    true,
		"noscript": true,
		"template": true,
		"iframe":   true,
		"object":   true,
		"svg":      true,
	}
	return skipped[tagName]
}

// isHidden catches the static hiding markers that survive serialization.
func isHidden(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "hidden":
			return true
		case "aria-hidden":
			if attr.Val == "true" {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(attr.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// extractTitle extracts the page title from the document
func extractTitle(doc *html.Node) string {
	title := findElement(doc, "title")
	if title == nil || title.FirstChild == nil || title.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(title.FirstChild.Data)
}
