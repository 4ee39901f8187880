package feed

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/wxvisuals/warnmap/internal/alert"
)

// atomNamespace is the canonical Atom namespace URI.
const atomNamespace = "http://www.w3.org/2005/Atom"

// collectEntries gathers entry elements namespace-agnostically. Extraction
// runs in tiers: namespaces declared on the document root first, then the
// canonical Atom namespace, then elements with no namespace at all. Results
// union positionally; an entry found by an earlier tier is not repeated.
func collectEntries(doc *xmlquery.Node) []*xmlquery.Node {
	all := xmlquery.Find(doc, "//entry")
	if len(all) == 0 {
		return nil
	}

	uris := rootNamespaces(doc)
	uris = append(uris, atomNamespace, "")

	seen := make(map[*xmlquery.Node]bool, len(all))
	var entries []*xmlquery.Node
	for _, uri := range uris {
		for _, node := range all {
			if node.NamespaceURI != uri || seen[node] {
				continue
			}
			seen[node] = true
			entries = append(entries, node)
		}
	}
	return entries
}

// rootNamespaces returns namespace URIs declared on the document root, in
// declaration order.
func rootNamespaces(doc *xmlquery.Node) []string {
	root := doc
	for root != nil && root.Type != xmlquery.ElementNode {
		root = root.FirstChild
	}
	if root == nil {
		return nil
	}
	var uris []string
	for _, attr := range root.Attr {
		if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns") {
			uris = append(uris, attr.Value)
		}
	}
	return uris
}

// entryID derives an entry's alert ID from its id element, falling back to
// the last path segment of an alternate link. Entries with neither are a
// ParseError.
func entryID(entry *xmlquery.Node) (string, error) {
	if idNode := xmlquery.FindOne(entry, "id"); idNode != nil {
		if text := strings.TrimSpace(idNode.InnerText()); text != "" {
			return lastSegment(text), nil
		}
	}

	for _, link := range xmlquery.Find(entry, "link") {
		if link.SelectAttr("rel") != "alternate" {
			continue
		}
		if href := link.SelectAttr("href"); href != "" {
			return lastSegment(href), nil
		}
	}

	return "", &alert.ParseError{
		Entry: entrySummary(entry),
		Err:   fmt.Errorf("no resolvable id element or alternate link"),
	}
}

func lastSegment(s string) string {
	return s[strings.LastIndex(s, "/")+1:]
}

func entrySummary(entry *xmlquery.Node) string {
	if title := xmlquery.FindOne(entry, "title"); title != nil {
		return strings.TrimSpace(title.InnerText())
	}
	return "<untitled>"
}
