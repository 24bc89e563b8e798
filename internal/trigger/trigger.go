package trigger

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/EeroPaukkonen/django-celery-async-view/pkg/asyncview"
)

// ButtonClass marks elements that start a download flow.
const ButtonClass = "async-download-button"

// Binding is one download trigger found in markup.
type Binding struct {
	// Href is the creation endpoint as written in data-href.
	Href string

	// Schedule is the fixed schedule from data-poll-interval, or nil when the
	// attribute is absent or unparsable.
	Schedule asyncview.Schedule

	// Label is the element's text content.
	Label string
}

// Resolve returns Href resolved against base.
func (b Binding) Resolve(base string) (string, error) {
	ref, err := url.Parse(b.Href)
	if err != nil {
		return "", fmt.Errorf("parse data-href %q: %w", b.Href, err)
	}
	if base == "" {
		return ref.String(), nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	return u.ResolveReference(ref).String(), nil
}

// Parse returns the download triggers in the markup read from r, in document
// order. Elements without data-href are skipped.
func Parse(r io.Reader) ([]Binding, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	var bindings []Binding
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, ButtonClass) {
			if b, ok := binding(n); ok {
				bindings = append(bindings, b)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return bindings, nil
}

// ParseString is Parse for markup held in a string.
func ParseString(markup string) ([]Binding, error) {
	return Parse(strings.NewReader(markup))
}

func binding(n *html.Node) (Binding, bool) {
	href := strings.TrimSpace(attr(n, "data-href"))
	if href == "" {
		return Binding{}, false
	}

	b := Binding{Href: href, Label: strings.Join(strings.Fields(text(n)), " ")}
	if v := strings.TrimSpace(attr(n, "data-poll-interval")); v != "" {
		if d, err := asyncview.ParseInterval(v); err == nil && d >= 0 {
			b.Schedule = asyncview.Fixed(d)
		}
	}
	return b, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
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
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
