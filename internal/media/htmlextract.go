package media

import (
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Candidate ranks in priority order: video metadata, then image metadata,
// then plain media tags. Callers try candidates in this order, so it decides
// which media a page resolves to.
const (
	rankOGVideo = iota
	rankTwitterStream
	rankOGImage
	rankTwitterImage
	rankVideoTag
	rankSourceTag
	rankImgTag
	rankCount
)

var (
	ogVideoProps      = []string{"og:video", "og:video:url", "og:video:secure_url"}
	ogImageProps      = []string{"og:image", "og:image:url", "og:image:secure_url"}
	twitterImageNames = []string{"twitter:image", "twitter:image:src"}
)

// ExtractMediaCandidates returns absolute, fragment-free http(s) media URLs
// found in markup, deduplicated with the first occurrence kept.
func ExtractMediaCandidates(markup, baseURL string) []string {
	doc, err := parseMarkup(markup)
	if err != nil {
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}

	var ranked [rankCount][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if rank, ref, ok := mediaReference(n); ok {
				ranked[rank] = append(ranked[rank], ref)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var candidates []string
	seen := make(map[string]struct{})
	for _, refs := range ranked {
		for _, raw := range refs {
			key, ok := absoluteMediaURL(base, raw)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			candidates = append(candidates, key)
		}
	}

	return candidates
}

// parseMarkup parses with scripting disabled so <noscript> fallbacks are
// walked as elements instead of a single raw text node.
func parseMarkup(markup string) (*html.Node, error) {
	return html.ParseWithOptions(strings.NewReader(markup), html.ParseOptionEnableScripting(false))
}

// mediaReference reports the rank and raw URL a media-bearing element carries.
func mediaReference(n *html.Node) (int, string, bool) {
	switch n.DataAtom {
	case atom.Meta:
		content := getAttr(n, "content")
		property := strings.ToLower(getAttr(n, "property"))
		name := strings.ToLower(getAttr(n, "name"))
		switch {
		case slices.Contains(ogVideoProps, property):
			return rankOGVideo, content, true
		case name == "twitter:player:stream":
			return rankTwitterStream, content, true
		case slices.Contains(ogImageProps, property):
			return rankOGImage, content, true
		case slices.Contains(twitterImageNames, name):
			return rankTwitterImage, content, true
		}
	case atom.Video:
		return rankVideoTag, getAttr(n, "src"), true
	case atom.Source:
		return rankSourceTag, getAttr(n, "src"), true
	case atom.Img:
		return rankImgTag, getAttr(n, "src"), true
	}
	return 0, "", false
}

func absoluteMediaURL(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	abs.RawFragment = ""

	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// textContent joins the text below n, skipping script and style bodies.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
